package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validServer() ServerConfig {
	return ServerConfig{
		MulticastGroup: "239.1.1.1",
		CommandPort:    52000,
		MaxSpace:       DefaultMaxSpace,
		SharedFolder:   "/srv/files",
		Timeout:        DefaultServerTimeout,
	}
}

func TestValidServerConfigPasses(t *testing.T) {
	assert.NoError(t, validServer().Validate())
}

func TestServerConfigRejectsNonMulticastGroup(t *testing.T) {
	c := validServer()
	c.MulticastGroup = "10.0.0.1"
	assert.Error(t, c.Validate())
}

func TestServerConfigRejectsBadPort(t *testing.T) {
	c := validServer()
	c.CommandPort = 0
	assert.Error(t, c.Validate())
	c.CommandPort = 70000
	assert.Error(t, c.Validate())
}

func TestServerConfigRejectsTimeoutOutOfRange(t *testing.T) {
	c := validServer()
	c.Timeout = 301 * time.Second
	assert.Error(t, c.Validate())
	c.Timeout = 0
	assert.Error(t, c.Validate())
}

func TestClientConfigRequiresOutputFolder(t *testing.T) {
	c := ClientConfig{
		MulticastGroup: "239.1.1.1",
		CommandPort:    52000,
		OutputFolder:   "",
		Timeout:        DefaultServerTimeout,
	}
	assert.Error(t, c.Validate())
	c.OutputFolder = "./downloads"
	assert.NoError(t, c.Validate())
}
