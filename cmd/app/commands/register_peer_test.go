package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credentialsDomain "github.com/allisson/ocpi-hub/internal/credentials/domain"
	"github.com/allisson/ocpi-hub/internal/ocpi"
)

// newFakePeer serves the peer side of the registration handshake.
func newFakePeer(t *testing.T) *httptest.Server {
	t.Helper()

	var server *httptest.Server
	mux := http.NewServeMux()

	writeEnvelope := func(w http.ResponseWriter, data any) {
		env, err := ocpi.NewEnvelope(data)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(env))
	}

	mux.HandleFunc("/ocpi/versions", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, []credentialsDomain.Version{
			{Version: ocpi.Version, URL: server.URL + "/ocpi/cpo/2.2.1"},
		})
	})
	mux.HandleFunc("/ocpi/cpo/2.2.1", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, credentialsDomain.VersionDetails{
			Version: ocpi.Version,
			Endpoints: []credentialsDomain.Endpoint{
				{Identifier: ocpi.ModuleCredentials, Role: ocpi.RoleReceiver, URL: server.URL + "/ocpi/cpo/2.2.1/credentials"},
				{Identifier: ocpi.ModuleCommands, Role: ocpi.RoleReceiver, URL: server.URL + "/ocpi/cpo/2.2.1/commands"},
			},
		})
	})
	mux.HandleFunc("/ocpi/cpo/2.2.1/credentials", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, credentialsDomain.Credential{
			Token: "peer-issued-token",
			URL:   server.URL + "/ocpi/versions",
			Roles: []credentialsDomain.CredentialsRole{
				{
					Role:            ocpi.PartyRoleCPO,
					BusinessDetails: credentialsDomain.BusinessDetails{Name: "Fake CPO"},
					PartyID:         "CPX",
					CountryCode:     "DE",
				},
			},
		})
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunRegisterPeer(t *testing.T) {
	t.Run("successful handshake", func(t *testing.T) {
		peer := newFakePeer(t)
		var out bytes.Buffer

		err := RunRegisterPeer(
			context.Background(),
			IOTuple{Writer: &out},
			"de-cpx",
			peer.URL+"/ocpi/versions",
			"registration-token",
		)
		require.NoError(t, err)

		output := out.String()
		assert.Contains(t, output, "de-cpx")
		assert.Contains(t, output, string(credentialsDomain.StateRegistered))
		assert.Contains(t, output, "DE*CPX")
		assert.Contains(t, output, "credentials")
	})

	t.Run("unreachable peer", func(t *testing.T) {
		var out bytes.Buffer

		err := RunRegisterPeer(
			context.Background(),
			IOTuple{Writer: &out},
			"de-cpx",
			"http://127.0.0.1:1/ocpi/versions",
			"registration-token",
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "handshake with peer")
	})
}
