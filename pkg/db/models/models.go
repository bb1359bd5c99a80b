package models

// All lists every persisted model, for schema bootstrapping in tests and
// local SQLite runs. Postgres schemas are owned by the goose migrations.
func All() []any {
	return []any{
		&User{},
		&ChatSession{},
		&ChatTurn{},
		&UserChatIndex{},
		&UserChatEntry{},
	}
}
