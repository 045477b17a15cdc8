package preference

// Corps JSON de l'API /v1/preferences. L'utilisateur vient toujours du jeton.

type CreateRequest struct {
	TargetID   string         `json:"target_id" validate:"required,max=128"`
	TargetType TargetType     `json:"target_type" validate:"required,oneof=project collaboration partner user"`
	Kind       Kind           `json:"kind" validate:"required,oneof=like follow hide block"`
	Reason     string         `json:"reason,omitempty" validate:"max=500"`
	Actor      *ActorSnapshot `json:"actor,omitempty"`
}

type CreateResponse struct {
	Result string `json:"result"`
}

type ListResponse struct {
	TargetIDs []string `json:"target_ids"`
}

type CheckRequest struct {
	TargetType TargetType `json:"target_type" validate:"required,oneof=project collaboration partner user"`
	Kind       Kind       `json:"kind" validate:"required,oneof=like follow hide block"`
	TargetIDs  []string   `json:"target_ids" validate:"required,min=1,max=200,dive,required"`
}

type CheckResponse struct {
	Members map[string]bool `json:"members"`
}

// ErrorResponse est renvoyé avec tout statut 4xx/5xx.
type ErrorResponse struct {
	Error string `json:"error"`
}
