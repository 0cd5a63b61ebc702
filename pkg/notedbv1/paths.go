package notedbv1

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath путь коллекции не соответствует схеме
var ErrInvalidPath = errors.New("invalid collection path")

// NotesPath путь коллекции заметок пользователя: artifacts/{app}/users/{uid}/notes
func NotesPath(appID, uid string) string {
	return fmt.Sprintf("artifacts/%s/users/%s/notes", appID, uid)
}

// OwnerOf возвращает uid владельца коллекции по сегменту users/{uid}.
// Путь коллекции имеет нечетное число непустых сегментов.
func OwnerOf(path string) (string, error) {
	segments := strings.Split(path, "/")
	if len(segments)%2 == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, s := range segments {
		if s == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	for i := 0; i+1 < len(segments); i += 2 {
		if segments[i] == "users" {
			return segments[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: %q has no owner", ErrInvalidPath, path)
}
