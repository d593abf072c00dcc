package interfaces

import "crypto-desk/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for sharing rendered desk state with
// external listeners (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// -----------------------------------------------------------------------------

	// Broadcast pushes a fresh snapshot to all connected listeners and makes
	// it the state served to new connections.
	Broadcast(snapshot *models.MDeskSnapshot)

	// -----------------------------------------------------------------------------

	// UpdateSnapshot replaces the stored state without broadcasting.
	UpdateSnapshot(snapshot *models.MDeskSnapshot)

	// -----------------------------------------------------------------------------

	// Start the server
	Start() error

	// -----------------------------------------------------------------------------

	// Stop the server gracefully
	Stop() error
}
