package app

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string // config directory, e.g. $HOME/.nimbus
	Passphrase string // protects the credential store
	AppVersion string // reported in the device identifier
	Workers    int    // crypto pool size; defaults to 4
	BlockSize  int    // upload block size; defaults to transfer.DefaultBlockSize
}
