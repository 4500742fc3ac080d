package memstore_test

import (
	"testing"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/memstore"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/storetest"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/port"
)

func TestMemStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) port.Store { return memstore.New() })
}
