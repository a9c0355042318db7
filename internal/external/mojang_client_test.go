package external

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMojangProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/profiles/minecraft/Notch":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"069a79f444e94726a5befca90e38aaf5","name":"Notch"}`))
		case "/users/profiles/minecraft/NoSuchPlayer":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	client := NewMojangClientWithBase(server.URL)

	profile, err := client.Profile("Notch")
	require.NoError(t, err)
	assert.Equal(t, "069a79f444e94726a5befca90e38aaf5", profile.ID)
	assert.Equal(t, "Notch", profile.Name)

	_, err = client.Profile("NoSuchPlayer")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = client.Profile("ServerError")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrProfileNotFound)
}
