package commands

import (
	"context"
	"fmt"

	"github.com/allisson/ocpi-hub/internal/app"
	"github.com/allisson/ocpi-hub/internal/config"
)

// RunRegisterPeer performs the full credentials handshake against a peer:
// version discovery, version details, then the credentials exchange. It is a
// connectivity and registration check; the resulting relationship lives in the
// command's process only.
func RunRegisterPeer(ctx context.Context, ioTuple IOTuple, name, versionsURL, token string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	negotiator, err := container.Negotiator()
	if err != nil {
		return fmt.Errorf("failed to initialize negotiator: %w", err)
	}

	if _, err := negotiator.AddPeer(ctx, name, versionsURL, token); err != nil {
		return fmt.Errorf("failed to add peer: %w", err)
	}

	credential, err := negotiator.Handshake(ctx, name)
	if err != nil {
		return fmt.Errorf("handshake with peer %q failed: %w", name, err)
	}

	peer, err := negotiator.GetPeer(name)
	if err != nil {
		return fmt.Errorf("failed to load peer after handshake: %w", err)
	}

	fmt.Fprintf(ioTuple.Writer, "Peer:     %s\n", peer.Name)
	fmt.Fprintf(ioTuple.Writer, "State:    %s\n", peer.State)
	fmt.Fprintf(ioTuple.Writer, "Party:    %s*%s\n", credential.CountryCode(), credential.PartyID())
	fmt.Fprintf(ioTuple.Writer, "Endpoints:\n")
	for module, url := range peer.Endpoints {
		fmt.Fprintf(ioTuple.Writer, "  %-20s %s\n", module, url)
	}
	fmt.Fprintf(ioTuple.Writer, "\nInbound token issued to peer (seed it through OCPI_TOKENS_C on restart):\n")
	fmt.Fprintf(ioTuple.Writer, "  %s\n", peer.InboundToken)

	return nil
}
