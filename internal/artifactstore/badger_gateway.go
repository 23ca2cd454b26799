package artifactstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docugen/internal/common"
	"github.com/ternarybob/docugen/internal/errs"
)

// BadgerGateway is the default Artifact Store Gateway when no S3-compatible
// bucket is configured (ArtifactStoreConfig.Enabled == false). It stores the
// bundle bytes directly in an embedded Badger database and returns a
// badger://artifacts/{key} URI, which the Publish stage rewrites to the
// job's API download path, grounded on
// the teacher's internal/storage/badger connection pattern adapted to raw
// badger/v4 (badgerhold's document-oriented API has no use here; a gateway
// is a flat byte store, see DESIGN.md).
type BadgerGateway struct {
	db     *badger.DB
	logger arbor.ILogger
}

func NewBadgerGateway(cfg *common.BadgerGatewayConfig, logger arbor.ILogger) (*BadgerGateway, error) {
	dir := cfg.Path
	if dir == "" {
		dir = "./data/artifacts"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Wrap(errs.KindStorageUnavail, "creating badger artifact store directory", err)
	}

	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageUnavail, "opening badger artifact store", err)
	}

	return &BadgerGateway{db: db, logger: logger}, nil
}

func (g *BadgerGateway) Configured() bool { return g.db != nil }

func (g *BadgerGateway) Put(ctx context.Context, key string, data []byte, contentType string, cacheHint string) (string, error) {
	err := g.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return "", errs.Wrap(errs.KindStorageUnavail, "writing artifact to badger", err)
	}
	g.logger.Debug().Str("key", key).Int("bytes", len(data)).Msg("artifact stored")
	return fmt.Sprintf("badger://artifacts/%s", key), nil
}

func (g *BadgerGateway) Delete(ctx context.Context, key string) error {
	err := g.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return errs.Wrap(errs.KindStorageUnavail, "deleting artifact from badger", err)
	}
	return nil
}

func (g *BadgerGateway) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}

// Get retrieves a previously stored artifact, used by the HTTP API's bundle
// download handler and by tests to verify P6 byte-for-byte.
func (g *BadgerGateway) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, errs.New(errs.KindStorageUnavail, "artifact not found: "+filepath.Base(key))
		}
		return nil, errs.Wrap(errs.KindStorageUnavail, "reading artifact from badger", err)
	}
	return out, nil
}
