package model

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

type ChatResponse struct {
	Response string         `json:"response"`
	Sources  []string       `json:"sources"`
	Actions  []ActionResult `json:"actions,omitempty"`
}

type ActionResult struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type RecommendRequest struct {
	Category string `json:"category"`
	Limit    int    `json:"limit" validate:"omitempty,min=1,max=20"`
}

type Recommendation struct {
	Item          Item     `json:"book"`
	AverageRating *float64 `json:"average_rating"`
	Reason        string   `json:"reason"`
}

type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	Message         string           `json:"message"`
}
