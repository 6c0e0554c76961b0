package models

// Requests for the HTTP API. Defined in domain for reuse by the CLI.

type ResolveRequest struct {
	Queries []string `query:"q" json:"queries" validate:"required,min=1,max=50,dive,required,max=120"`
}

type QuotesRequest struct {
	Symbols string `query:"symbols" json:"symbols" validate:"required,max=600"`
}

type RankedNewsRequest struct {
	Holdings []Holding `json:"holdings" validate:"required,min=1,max=200,dive"`
	Limit    int       `json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type OnboardRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}
