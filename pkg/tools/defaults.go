package tools

import "github.com/CuriosityOS/advanced-whatsapp-llm/pkg/config"

// RegisterBuiltins adds the standard tool set, applying any per-tool
// configuration (enabled flag, category override, rate limit) by name.
func RegisterBuiltins(r *Registry, cfgs map[string]config.ToolConfig) error {
	builtins := []Tool{
		NewCalculatorTool(),
		NewWeatherTool(),
		NewDateTimeTool(),
		NewWebSearchTool(),
		NewIdentifierTool(),
	}

	for _, tool := range builtins {
		cfg := cfgs[tool.Info().Name]
		if err := r.Register(tool, cfg); err != nil {
			return err
		}
	}
	return nil
}
