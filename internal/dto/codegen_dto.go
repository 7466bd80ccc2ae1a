package dto

type VibeRequest struct {
	VibeDescription string `json:"vibe_description" validate:"required,min=10,max=2000"`
}

type OptimizeRequest struct {
	Code     string `json:"code" validate:"required,max=200000"`
	Language string `json:"language" validate:"omitempty,max=20"`
}

type ProjectGenerateRequest struct {
	Language string `json:"language" validate:"omitempty,oneof=html react"`
}

type CodegenResponse struct {
	Status        string         `json:"status"`
	GeneratedCode string         `json:"generated_code,omitempty"`
	OptimizedCode string         `json:"optimized_code,omitempty"`
	Structure     map[string]any `json:"structure,omitempty"`
}
