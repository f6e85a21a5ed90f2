package repository

import "context"

// Transactor выполняет fn в одной транзакции хранилища.
// Репозитории, вызванные с контекстом fn, работают внутри этой транзакции.
// Вложенный вызов присоединяется к уже открытой транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
