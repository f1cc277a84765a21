package application

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-bracket/internal/domain"
)

// RegisterTournamentValidators registers the custom validators referenced by
// TournamentConfig struct tags: semver, direction, strategy and
// modelformat.
func RegisterTournamentValidators(v *validator.Validate) error {
	validators := map[string]validator.Func{
		"semver":      validateSemver,
		"direction":   validateDirection,
		"strategy":    validateStrategy,
		"modelformat": validateModelFormat,
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// validateSemver accepts X.Y.Z where each part is a number.
func validateSemver(fl validator.FieldLevel) bool {
	var major, minor, patch int
	n, err := fmt.Sscanf(fl.Field().String(), "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3
}

func validateDirection(fl validator.FieldLevel) bool {
	_, err := domain.ParseDirection(fl.Field().String())
	return err == nil
}

func validateStrategy(fl validator.FieldLevel) bool {
	_, err := domain.ParseStrategy(fl.Field().String())
	return err == nil
}

// validateModelFormat accepts "provider/model" with both parts non-empty.
func validateModelFormat(fl validator.FieldLevel) bool {
	model := fl.Field().String()
	if model == "" {
		return true
	}
	provider, name, ok := strings.Cut(model, "/")
	return ok && provider != "" && name != ""
}

// ValidateJudgeParameters checks the type-specific parameters of a judge
// before any judge is constructed, so configuration mistakes surface at
// load time.
func ValidateJudgeParameters(judge JudgeConfig) error {
	params := map[string]any{}
	if !judge.Parameters.IsZero() {
		if err := judge.Parameters.Decode(&params); err != nil {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
	}

	switch judge.Type {
	case "random":
		return validateRandomParams(params)
	case "comparator":
		return validateComparatorParams(params)
	case "similarity":
		return validateSimilarityParams(params)
	case "interactive":
		return nil
	case "llm":
		if judge.Model == "" {
			return fmt.Errorf("llm judge requires 'model' in provider/model form")
		}
		return validateLLMParams(params)
	default:
		return fmt.Errorf("unknown judge type: %s", judge.Type)
	}
}

func validateRandomParams(params map[string]any) error {
	if bias, ok := params["bias"]; ok {
		s, ok := bias.(string)
		if !ok {
			return fmt.Errorf("bias must be a string")
		}
		switch s {
		case "none", "strongest", "weakest":
		default:
			return fmt.Errorf("invalid bias: %s", s)
		}
	}
	if seed, ok := params["seed"]; ok {
		if n, ok := seed.(int); !ok || n < 0 {
			return fmt.Errorf("seed must be a non-negative integer")
		}
	}
	return nil
}

func validateComparatorParams(params map[string]any) error {
	if order, ok := params["order"]; ok {
		s, ok := order.(string)
		if !ok {
			return fmt.Errorf("order must be a string")
		}
		if _, ok := comparators[s]; !ok {
			return fmt.Errorf("invalid comparator order: %s", s)
		}
	}
	return nil
}

func validateSimilarityParams(params map[string]any) error {
	ref, ok := params["reference"]
	if !ok {
		return fmt.Errorf("similarity requires 'reference' parameter")
	}
	if s, ok := ref.(string); !ok || s == "" {
		return fmt.Errorf("reference must be a non-empty string")
	}
	if cs, ok := params["case_sensitive"]; ok {
		if _, ok := cs.(bool); !ok {
			return fmt.Errorf("case_sensitive must be a boolean")
		}
	}
	return nil
}

func validateLLMParams(params map[string]any) error {
	if temp, ok := params["temperature"]; ok {
		switch v := temp.(type) {
		case float64:
			if v < 0 || v > 2 {
				return fmt.Errorf("temperature must be between 0 and 2")
			}
		case int:
			if v < 0 || v > 2 {
				return fmt.Errorf("temperature must be between 0 and 2")
			}
		default:
			return fmt.Errorf("temperature must be a number")
		}
	}
	if prompt, ok := params["prompt"]; ok {
		if s, ok := prompt.(string); !ok || s == "" {
			return fmt.Errorf("prompt must be a non-empty string")
		}
	}
	return nil
}

// decodeParameters decodes a judge's parameters into out. Absent
// parameters leave out untouched.
func decodeParameters(node yaml.Node, out any) error {
	if node.IsZero() {
		return nil
	}
	if err := node.Decode(out); err != nil {
		return fmt.Errorf("failed to decode parameters: %w", err)
	}
	return nil
}
