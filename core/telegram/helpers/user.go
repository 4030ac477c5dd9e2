package helpers

import "context"

// CurrentUser resolves a chat identity to a domain account via a directory
// that implements Find. The generic type T allows different projects to
// supply their own account model.
func CurrentUser[T any](
	ctx context.Context,
	directory interface {
		Find(context.Context, int64) (T, error)
	},
	chatID int64,
) (T, error) {
	var zero T
	if directory == nil {
		return zero, nil
	}
	return directory.Find(ctx, chatID)
}
