//go:generate go run go.uber.org/mock/mockgen -source=cluster.go -destination=../mocks/mock_cluster_repository.go -package=mocks
package repositories

import (
	"fmt"
	"im-bridge/domain"
	"im-bridge/errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	clusterPrefix = "cluster:"
	memberPrefix  = "member:"

	// Concurrent joins to one cluster conflict at commit; the loser re-reads and retries.
	maxConflictRetries = 64
)

type IClusterRepository interface {
	Create() (string, error)
	ListNames() ([]string, error)
	Join(name string, group domain.Group) error
	ForwardTargets(group domain.Group) ([]domain.Group, error)
}

// NameGenerator draws candidate cluster names.
type NameGenerator func() (string, error)

// ClusterRepository stores one document per cluster under "cluster:{name}"
// and one empty index key per membership under "member:{network}:{group}:{name}".
// Both are always written in the same transaction.
type ClusterRepository struct {
	db    *badger.DB
	log   *slog.Logger
	names NameGenerator
}

func NewClusterRepository(db *badger.DB, log *slog.Logger, names NameGenerator) *ClusterRepository {
	return &ClusterRepository{db: db, log: log, names: names}
}

// Create inserts an empty cluster under a freshly generated name.
// A name collision is reported as ErrClusterAlreadyExists and not retried.
func (r *ClusterRepository) Create() (string, error) {
	name, err := r.names()
	if err != nil {
		return "", fmt.Errorf("name generation failed: %w", err)
	}
	data, err := EncodeCluster(domain.NewCluster(name, time.Now().UTC()))
	if err != nil {
		return "", err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		key := clusterKey(name)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", errors.ErrClusterAlreadyExists, name)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// ListNames enumerates cluster names using a key-only scan.
func (r *ClusterRepository) ListNames() ([]string, error) {
	var names []string
	err := r.db.View(func(txn *badger.Txn) error {
		names = scanSuffixes(txn, []byte(clusterPrefix))
		return nil
	})
	return names, err
}

// Join adds group to the named cluster. Joining twice is a no-op success.
// An unknown cluster name is ErrClusterNotFound.
func (r *ClusterRepository) Join(name string, group domain.Group) error {
	if err := group.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidGroup, err)
	}
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err := r.db.Update(func(txn *badger.Txn) error {
			return join(txn, name, group)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		r.log.Debug("Concurrent join detected, retrying", "cluster", name, "group", group, "attempt", attempt)
	}
	return fmt.Errorf("join %s gave up after %d attempts: %w", name, maxConflictRetries, badger.ErrConflict)
}

func join(txn *badger.Txn, name string, group domain.Group) error {
	cluster, err := getCluster(txn, name)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", errors.ErrClusterNotFound, name)
	}
	if err != nil {
		return err
	}
	if !cluster.Add(group) {
		return nil
	}
	data, err := EncodeCluster(cluster)
	if err != nil {
		return err
	}
	if err = txn.Set(clusterKey(name), data); err != nil {
		return err
	}
	return txn.Set(memberKey(group, name), nil)
}

// ForwardTargets returns the other members of every cluster group belongs to,
// without duplicates. It reads a single snapshot, so the answer always matches
// a state the store actually went through.
func (r *ClusterRepository) ForwardTargets(group domain.Group) ([]domain.Group, error) {
	var targets []domain.Group
	err := r.db.View(func(txn *badger.Txn) error {
		for _, name := range scanSuffixes(txn, memberScanPrefix(group)) {
			cluster, err := getCluster(txn, name)
			if errors.Is(err, badger.ErrKeyNotFound) {
				r.log.Warn("Membership index points to a missing cluster", "cluster", name, "group", group)
				continue
			}
			if err != nil {
				return err
			}
			targets = append(targets, cluster.Others(group)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Uniq(targets), nil
}

// All loads every cluster document, in key order.
func (r *ClusterRepository) All() ([]domain.Cluster, error) {
	var clusters []domain.Cluster
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(clusterPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				cluster, err := DecodeCluster(val)
				if err != nil {
					return fmt.Errorf("%s: %w", it.Item().Key(), err)
				}
				clusters = append(clusters, cluster)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return clusters, err
}

// Get loads one cluster document.
func (r *ClusterRepository) Get(name string) (domain.Cluster, error) {
	var cluster domain.Cluster
	err := r.db.View(func(txn *badger.Txn) error {
		c, err := getCluster(txn, name)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", errors.ErrClusterNotFound, name)
		}
		cluster = c
		return err
	})
	return cluster, err
}

func getCluster(txn *badger.Txn, name string) (domain.Cluster, error) {
	item, err := txn.Get(clusterKey(name))
	if err != nil {
		return domain.Cluster{}, err
	}
	var cluster domain.Cluster
	err = item.Value(func(val []byte) error {
		cluster, err = DecodeCluster(val)
		return err
	})
	return cluster, err
}

// scanSuffixes lists what follows prefix in every matching key, without reading values.
func scanSuffixes(txn *badger.Txn, prefix []byte) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var res []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		res = append(res, string(it.Item().Key()[len(prefix):]))
	}
	return res
}

func clusterKey(name string) []byte {
	return []byte(clusterPrefix + name)
}

func memberScanPrefix(g domain.Group) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:", memberPrefix, g.Network, g.ID))
}

func memberKey(g domain.Group, name string) []byte {
	return append(memberScanPrefix(g), name...)
}

// IsClusterKey tells documents apart from index entries when walking the whole store.
func IsClusterKey(key string) bool {
	return strings.HasPrefix(key, clusterPrefix)
}

// EncodeCluster serializes a cluster as a protobuf Struct document:
// {name, created_at, groups: [{network, id}]}.
func EncodeCluster(c domain.Cluster) ([]byte, error) {
	groups := lo.Map(c.Groups, func(g domain.Group, _ int) any {
		return map[string]any{"network": string(g.Network), "id": g.ID}
	})
	doc, err := structpb.NewStruct(map[string]any{
		"name":       c.Name,
		"created_at": c.CreatedAt.UTC().Format(time.RFC3339Nano),
		"groups":     groups,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
	}
	return proto.Marshal(doc)
}

func DecodeCluster(data []byte) (domain.Cluster, error) {
	var doc structpb.Struct
	if err := proto.Unmarshal(data, &doc); err != nil {
		return domain.Cluster{}, fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
	}
	fields := doc.GetFields()
	name := fields["name"].GetStringValue()
	if name == "" {
		return domain.Cluster{}, fmt.Errorf("%w: missing name", errors.ErrInvalidDocument)
	}
	cluster := domain.Cluster{Name: name}
	if raw := fields["created_at"].GetStringValue(); raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Cluster{}, fmt.Errorf("%w: %v", errors.ErrInvalidDocument, err)
		}
		cluster.CreatedAt = at
	}
	for _, v := range fields["groups"].GetListValue().GetValues() {
		g := v.GetStructValue().GetFields()
		cluster.Groups = append(cluster.Groups, domain.Group{
			Network: domain.Network(g["network"].GetStringValue()),
			ID:      g["id"].GetStringValue(),
		})
	}
	return cluster, nil
}
