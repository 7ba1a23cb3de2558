package wizard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kosarica/import-wizard/internal/types"
)

func TestStoreDispatchNotifiesListeners(t *testing.T) {
	store := NewStore(nil)

	var got []string
	store.Subscribe(func(ev Event, prev, next State) {
		got = append(got, EventName(ev))
		if _, ok := ev.(SetWindowDays); ok {
			assert.Equal(t, DefaultWindowDays, prev.WindowDays)
			assert.Equal(t, 10, next.WindowDays)
		}
	})

	store.Dispatch(SetWindowDays{Days: 10})
	store.Dispatch(ToggleRoundPrices{})

	assert.Equal(t, []string{"set_window_days", "toggle_round_prices"}, got)
	assert.Equal(t, 10, store.Snapshot().WindowDays)
	assert.False(t, store.Snapshot().RoundPrices)
}

func TestStoreListenerMayDispatch(t *testing.T) {
	store := NewStore(nil)
	store.Subscribe(func(ev Event, prev, next State) {
		if _, ok := ev.(AddRule); ok {
			store.Dispatch(ToggleIncludeExpired{})
		}
	})

	store.Dispatch(AddRule{Days: 1, Discount: 10})

	s := store.Snapshot()
	assert.True(t, s.IncludeExpired)
	assert.Len(t, s.DiscountRules, 4)
}

func TestStoreConcurrentDispatch(t *testing.T) {
	store := NewStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Dispatch(AddRule{Days: 1, Discount: 5})
		}()
	}
	wg.Wait()

	rules := store.Snapshot().DiscountRules
	assert.Len(t, rules, 53)
	ids := map[int]bool{}
	for _, r := range rules {
		assert.False(t, ids[r.ID])
		ids[r.ID] = true
	}
}

func TestDispatchAtRefusedAfterInvalidatingEvent(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		apply bool
	}{
		{name: "new file", event: SetFile{File: &types.FileHandle{Name: "b.csv"}}, apply: false},
		{name: "reset", event: Reset{}, apply: false},
		{name: "window change", event: SetWindowDays{Days: 3}, apply: false},
		{name: "publish mode", event: SetPublishMode{Mode: PublishModeDraft}, apply: true},
		{name: "navigation", event: PrevStep{}, apply: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(nil)
			store.Dispatch(SetFile{File: &types.FileHandle{Name: "a.csv"}})
			_, rev := store.SnapshotRevision()

			store.Dispatch(tt.event)
			preview := &types.ImportPreview{TotalRows: 2}
			state, applied := store.DispatchAt(rev, SetPreview{Preview: preview})

			assert.Equal(t, tt.apply, applied)
			if tt.apply {
				assert.Same(t, preview, state.Preview)
			} else {
				assert.Nil(t, store.Snapshot().Preview)
			}
		})
	}
}
