package services

// Service errors
var (
	ErrMatchFull          = &ServiceError{Message: "match already has two players"}
	ErrCannotJoinOwnMatch = &ServiceError{Message: "cannot join your own match"}
	ErrMatchNotJoinable   = &ServiceError{Message: "match is not open for joining"}
	ErrMatchNotFound      = &ServiceError{Message: "match not found"}
	ErrRallyNotFound      = &ServiceError{Message: "rally not found"}
	ErrCategoryNotFound   = &ServiceError{Message: "category not found"}
	ErrPlayerNotFound     = &ServiceError{Message: "player not found"}
	ErrMissingUserID      = &ServiceError{Message: "user id is required"}
)

// ServiceError represents a service-level error
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}
