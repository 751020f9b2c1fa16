/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package radixstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/acronis/go-bucketgrid/store"
	"github.com/acronis/go-bucketgrid/store/storetest"
)

// RedisAddrEnv is the name of the environment variable with the Redis address used by tests.
const RedisAddrEnv = "BUCKETGRID_REDIS_ADDR"

func TestStore(t *testing.T) {
	addr := os.Getenv(RedisAddrEnv)
	if addr == "" {
		t.Skipf("%s is not set", RedisAddrEnv)
	}

	suite.Run(t, &storetest.Suite{NewStore: func(t *testing.T) store.Store {
		s, err := NewPool("tcp", addr, 4, WithKeyPrefix("bucketgrid-test:"))
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, s.Close()) })
		return s
	}})
}
