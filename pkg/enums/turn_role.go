package enums

import "fmt"

// TurnRole identifies the author of a chat turn.
type TurnRole string

const (
	TurnRoleUser  TurnRole = "user"
	TurnRoleModel TurnRole = "model"
)

var validTurnRoles = []TurnRole{
	TurnRoleUser,
	TurnRoleModel,
}

func (r TurnRole) String() string {
	return string(r)
}

func (r TurnRole) IsValid() bool {
	for _, candidate := range validTurnRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseTurnRole(value string) (TurnRole, error) {
	for _, candidate := range validTurnRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid turn role %q", value)
}
