package storage

import "github.com/yama-lei/plantodo/internal"

// Repositories bundles every collection the engine reads or writes.
type Repositories struct {
	Users         UserRepository
	Tasks         TaskRepository
	Posts         PostRepository
	Conversations ConversationRepository
	Plants        PlantRepository
}

func NewFileRepositories(files FilePaths, logger internal.Logger) (*Repositories, error) {
	storage, err := NewFileStorage(files, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Users:         storage,
		Tasks:         storage,
		Posts:         storage,
		Conversations: storage,
		Plants:        storage,
	}, nil
}

func NewPostgresRepositories(dsn string, logger internal.Logger) (*Repositories, error) {
	storage, err := NewPostgresStorage(dsn, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Users:         storage,
		Tasks:         storage,
		Posts:         storage,
		Conversations: storage,
		Plants:        storage,
	}, nil
}
