// Package game is the relational side of the app: habits, shop catalog and
// player inventory, previously Supabase tables. It is deliberately thin
// CRUD — reward math (XP curves, evolution thresholds) stays client-side.
package game

import "time"

type Habit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	XPReward  int       `json:"xpReward"`
	CreatedAt time.Time `json:"createdAt"`
}

type HabitLog struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habitId"`
	DoneOn    string    `json:"doneOn"` // ISO date, matching the sheet convention
	CreatedAt time.Time `json:"createdAt"`
}

type ShopItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Price    int    `json:"price"`
	Category string `json:"category"`
}

type InventoryItem struct {
	ItemID    string    `json:"itemId"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updatedAt"`
}
