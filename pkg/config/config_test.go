package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node_type: manager
listen_addr: /ip4/0.0.0.0/tcp/5001
storage:
  backend: ipfs
  ipfs_url: http://localhost:5001
chain:
  rpc_endpoint: http://localhost:8545
  contract_address: "0x1111111111111111111111111111111111111111"
  account_key_file: /tmp/account.key
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, NodeTypeManager, cfg.NodeType)
	assert.Equal(t, "/ip4/0.0.0.0/tcp/5001", cfg.ListenAddr)
	assert.Equal(t, "ipfs", cfg.Storage.Backend)
	assert.Equal(t, "http://localhost:5001", cfg.Storage.IPFSURL)
	// Untouched defaults survive the merge.
	assert.Equal(t, 10*time.Second, cfg.ManagerTimeout)
}

func TestValidateRejectsUnknownNodeType(t *testing.T) {
	cfg := Defaults()
	cfg.NodeType = "rogue"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownStorageBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Backend = "s3"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresChainConfigForManager(t *testing.T) {
	cfg := Defaults()
	cfg.NodeType = NodeTypeManager
	assert.Error(t, cfg.Validate())

	cfg.Chain.RPCEndpoint = "http://localhost:8545"
	cfg.Chain.ContractAddress = "0x1111111111111111111111111111111111111111"
	cfg.Chain.AccountKeyFile = "/tmp/account.key"
	assert.NoError(t, cfg.Validate())
}
