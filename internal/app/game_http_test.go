package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"habitquest/api/internal/cache"
	"habitquest/api/internal/config"
	"habitquest/api/internal/game"
)

type fakeGameStore struct {
	habits    []game.Habit
	logs      []game.HabitLog
	items     []game.ShopItem
	inventory map[string]game.InventoryItem
	nextID    int
}

func newFakeGameStore() *fakeGameStore {
	return &fakeGameStore{inventory: make(map[string]game.InventoryItem)}
}

func (f *fakeGameStore) Ping(context.Context) error { return nil }

func (f *fakeGameStore) ListHabits(context.Context) ([]game.Habit, error) {
	return f.habits, nil
}

func (f *fakeGameStore) CreateHabit(_ context.Context, name, icon string, xpReward int) (game.Habit, error) {
	f.nextID++
	habit := game.Habit{ID: "h" + string(rune('0'+f.nextID)), Name: name, Icon: icon, XPReward: xpReward, CreatedAt: time.Now()}
	f.habits = append(f.habits, habit)
	return habit, nil
}

func (f *fakeGameStore) DeleteHabit(_ context.Context, id string) error {
	for i, h := range f.habits {
		if h.ID == id {
			f.habits = append(f.habits[:i], f.habits[i+1:]...)
			return nil
		}
	}
	return game.ErrNotFound
}

func (f *fakeGameStore) LogHabit(_ context.Context, habitID, doneOn string) (game.HabitLog, error) {
	entry := game.HabitLog{ID: "l1", HabitID: habitID, DoneOn: doneOn, CreatedAt: time.Now()}
	f.logs = append(f.logs, entry)
	return entry, nil
}

func (f *fakeGameStore) ListShopItems(context.Context) ([]game.ShopItem, error) {
	return f.items, nil
}

func (f *fakeGameStore) ListInventory(context.Context) ([]game.InventoryItem, error) {
	out := make([]game.InventoryItem, 0, len(f.inventory))
	for _, item := range f.inventory {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeGameStore) AddInventory(_ context.Context, itemID string, quantity int) (game.InventoryItem, error) {
	item := f.inventory[itemID]
	item.ItemID = itemID
	item.Quantity += quantity
	item.UpdatedAt = time.Now()
	f.inventory[itemID] = item
	return item, nil
}

func newGameServer() (*HTTPServer, *fakeGameStore) {
	store := newFakeGameStore()
	opener := &fakeOpener{doc: &fakeSpreadsheet{}}
	svc := NewWithGame(config.Config{}, opener, cache.NewMemory(time.Minute), store)
	return NewHTTPServer(svc, "*"), store
}

func TestHabitLifecycle(t *testing.T) {
	server, store := newGameServer()

	rr := postJSON(t, server, http.MethodPost, "/api/game/habits",
		`{"name":"Morning run","icon":"shoe","xpReward":15}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("create habit status = %d, body %s", rr.Code, rr.Body.String())
	}
	var habit game.Habit
	if err := json.Unmarshal(rr.Body.Bytes(), &habit); err != nil {
		t.Fatalf("failed to parse habit: %v", err)
	}
	if habit.Name != "Morning run" || habit.XPReward != 15 {
		t.Errorf("habit = %+v", habit)
	}

	rr = postJSON(t, server, http.MethodGet, "/api/game/habits", "")
	if !strings.Contains(rr.Body.String(), "Morning run") {
		t.Errorf("habit list = %s", rr.Body.String())
	}

	rr = postJSON(t, server, http.MethodPost, "/api/game/habits/"+habit.ID+"/log", `{"doneOn":"2024-06-01"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("log habit status = %d", rr.Code)
	}
	if len(store.logs) != 1 || store.logs[0].DoneOn != "2024-06-01" {
		t.Errorf("logs = %+v", store.logs)
	}

	rr = postJSON(t, server, http.MethodDelete, "/api/game/habits/"+habit.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete habit status = %d", rr.Code)
	}
	rr = postJSON(t, server, http.MethodDelete, "/api/game/habits/"+habit.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("double delete status = %d, want 404", rr.Code)
	}
}

func TestHabitCreateRequiresName(t *testing.T) {
	server, _ := newGameServer()
	rr := postJSON(t, server, http.MethodPost, "/api/game/habits", `{"icon":"x"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestInventoryUpsert(t *testing.T) {
	server, _ := newGameServer()

	rr := postJSON(t, server, http.MethodPost, "/api/game/inventory", `{"itemId":"potion"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	rr = postJSON(t, server, http.MethodPost, "/api/game/inventory", `{"itemId":"potion","quantity":2}`)

	var item game.InventoryItem
	if err := json.Unmarshal(rr.Body.Bytes(), &item); err != nil {
		t.Fatalf("failed to parse inventory item: %v", err)
	}
	// Default quantity is 1, so the second purchase brings the total to 3.
	if item.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", item.Quantity)
	}
}
