package ingest

import "strings"

// remediation hints surfaced to the end user alongside a failure category.
var remediations = map[FailureCategory]string{
	FailureCorrupt:     "The file appears to be damaged. Re-export or re-download it and try again.",
	FailureEncrypted:   "The document is password protected. Remove the password and re-upload it.",
	FailureUnsupported: "This file format is not supported. Convert it to PDF, DOCX, XLSX, or plain text.",
	FailureResource:    "The document is too large to process. Split it into smaller files and upload those.",
}

// classifyFailure inspects the accumulated strategy errors and picks the
// most specific category. Password errors win over corruption because an
// encrypted file usually also fails the strict parse with a garbled error.
func classifyFailure(attempts []AttemptError) *Failure {
	category := FailureCorrupt
	message := "no extraction strategy succeeded"

	for _, a := range attempts {
		lower := strings.ToLower(a.Err)
		switch {
		case strings.Contains(lower, "encrypted") || strings.Contains(lower, "password"):
			category = FailureEncrypted
			message = "document is password protected"
		case strings.Contains(lower, "unsupported version") || strings.Contains(lower, "malformed pdf version"):
			if category != FailureEncrypted {
				category = FailureUnsupported
				message = "document uses an unsupported format version"
			}
		case strings.Contains(lower, "too large") || strings.Contains(lower, "exceeds"):
			if category != FailureEncrypted {
				category = FailureResource
				message = "document exceeds processing limits"
			}
		}
	}

	if len(attempts) == 0 {
		category = FailureUnsupported
		message = "no extraction strategy accepts this file type"
	}

	return &Failure{
		Category:    category,
		Message:     message,
		Remediation: remediations[category],
		Attempts:    attempts,
	}
}
