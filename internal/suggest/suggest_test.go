package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuquick/internal/domain"
)

func testMenu() *domain.Menu {
	return &domain.Menu{
		Categories: []domain.MenuCategory{{
			Name: "Drinks",
			Items: []domain.MenuItem{
				{ID: "dri1", Name: "Iced Tea", Price: 3.00},
				{ID: "dri2", Name: "Latte", Price: 4.50},
				{ID: "des1", Name: "Cheesecake", Price: 6.50},
			},
		}},
	}
}

func TestFilterKeepsMenuItemsOnly(t *testing.T) {
	menu := testMenu()

	for name, tc := range map[string]struct {
		raw  string
		want []string
	}{
		"happy path":             {"Latte, Cheesecake", []string{"Latte", "Cheesecake"}},
		"off-menu dropped":       {"Latte, Espresso Martini", []string{"Latte"}},
		"case canonicalized":     {"latte, CHEESECAKE", []string{"Latte", "Cheesecake"}},
		"dupes collapsed":        {"Latte, latte, Latte", []string{"Latte"}},
		"whitespace and empties": {" Latte ,, , Iced Tea", []string{"Latte", "Iced Tea"}},
		"nothing usable":         {"Pizza, Burger", nil},
		"empty answer":           {"", nil},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Filter(tc.raw, menu))
		})
	}
}

func TestGatewaySuggest(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(Response{Suggestions: "Latte, Pizza, latte, Cheesecake"})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "", nil)
	suggestions := g.Suggest(context.Background(), "morning", []string{"Iced Tea"}, testMenu())

	assert.Equal(t, []string{"Latte", "Cheesecake"}, suggestions)
	assert.Equal(t, "morning", got.TimeOfDay)
	assert.Equal(t, "Iced Tea", got.PreviousOrders)
	assert.Equal(t, "Iced Tea, Latte, Cheesecake", got.AvailableMenuItems)
}

func TestGatewaySuggestNoPreviousOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "None", req.PreviousOrders)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Response{Suggestions: "Latte"})
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "sk-test", nil)
	assert.Equal(t, []string{"Latte"}, g.Suggest(context.Background(), "night", nil, testMenu()))
}

func TestGatewaySuggestDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewGateway(srv.URL, "", nil)
	assert.Empty(t, g.Suggest(context.Background(), "evening", nil, testMenu()))

	unconfigured := NewGateway("", "", nil)
	assert.Empty(t, unconfigured.Suggest(context.Background(), "evening", nil, testMenu()))
}

func TestTimeOfDay(t *testing.T) {
	for hour, want := range map[int]string{
		5: "morning", 11: "morning",
		12: "afternoon", 17: "afternoon",
		18: "evening", 22: "evening",
		23: "night", 0: "night", 4: "night",
	} {
		assert.Equal(t, want, TimeOfDay(hour), "hour %d", hour)
	}
}
