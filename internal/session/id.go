package session

import (
	"errors"
	"strings"
)

// ID es el identificador combinado de una sesión. En el wire viaja como
// "groupID:sessionID"; internamente siempre es el par estructurado para
// que los bugs de split de strings no se propaguen a la lógica.
type ID struct {
	GroupID   string
	SessionID string
}

var ErrBadID = errors.New("session: malformed combined id")

// Parse deserializa el identificador combinado del transporte.
func Parse(combined string) (ID, error) {
	i := strings.IndexByte(combined, ':')
	if i <= 0 || i == len(combined)-1 {
		return ID{}, ErrBadID
	}
	return ID{GroupID: combined[:i], SessionID: combined[i+1:]}, nil
}

// String serializa para el transporte.
func (id ID) String() string {
	return id.GroupID + ":" + id.SessionID
}

func (id ID) IsZero() bool {
	return id.GroupID == "" || id.SessionID == ""
}
