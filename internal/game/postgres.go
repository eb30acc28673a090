package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store is the persistence surface the HTTP layer talks to. Kept as an
// interface so handler tests can run against an in-memory fake.
type Store interface {
	Ping(ctx context.Context) error
	ListHabits(ctx context.Context) ([]Habit, error)
	CreateHabit(ctx context.Context, name, icon string, xpReward int) (Habit, error)
	DeleteHabit(ctx context.Context, id string) error
	LogHabit(ctx context.Context, habitID, doneOn string) (HabitLog, error)
	ListShopItems(ctx context.Context) ([]ShopItem, error)
	ListInventory(ctx context.Context) ([]InventoryItem, error)
	AddInventory(ctx context.Context, itemID string, quantity int) (InventoryItem, error)
}

// ErrNotFound reports a habit or shop item id with no matching row.
var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) ListHabits(ctx context.Context) ([]Habit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, icon, xp_reward, created_at
		FROM habits
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		var h Habit
		if err := rows.Scan(&h.ID, &h.Name, &h.Icon, &h.XPReward, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *PostgresStore) CreateHabit(ctx context.Context, name, icon string, xpReward int) (Habit, error) {
	var h Habit
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO habits (name, icon, xp_reward)
		VALUES ($1, $2, $3)
		RETURNING id, name, icon, xp_reward, created_at
	`, name, icon, xpReward).Scan(&h.ID, &h.Name, &h.Icon, &h.XPReward, &h.CreatedAt)
	if err != nil {
		return Habit{}, fmt.Errorf("insert habit: %w", err)
	}
	return h, nil
}

func (s *PostgresStore) DeleteHabit(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) LogHabit(ctx context.Context, habitID, doneOn string) (HabitLog, error) {
	var entry HabitLog
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO habit_logs (habit_id, done_on)
		VALUES ($1, $2)
		RETURNING id, habit_id, done_on, created_at
	`, habitID, doneOn).Scan(&entry.ID, &entry.HabitID, &entry.DoneOn, &entry.CreatedAt)
	if err != nil {
		return HabitLog{}, fmt.Errorf("log habit: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListShopItems(ctx context.Context) ([]ShopItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, icon, price, category
		FROM shop_items
		ORDER BY category, price
	`)
	if err != nil {
		return nil, fmt.Errorf("list shop items: %w", err)
	}
	defer rows.Close()

	var items []ShopItem
	for rows.Next() {
		var item ShopItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Icon, &item.Price, &item.Category); err != nil {
			return nil, fmt.Errorf("scan shop item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, quantity, updated_at
		FROM inventory
		ORDER BY item_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		var item InventoryItem
		if err := rows.Scan(&item.ItemID, &item.Quantity, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) AddInventory(ctx context.Context, itemID string, quantity int) (InventoryItem, error) {
	var item InventoryItem
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inventory (item_id, quantity)
		VALUES ($1, $2)
		ON CONFLICT (item_id)
		DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING item_id, quantity, updated_at
	`, itemID, quantity).Scan(&item.ItemID, &item.Quantity, &item.UpdatedAt)
	if err != nil {
		return InventoryItem{}, fmt.Errorf("upsert inventory: %w", err)
	}
	return item, nil
}
