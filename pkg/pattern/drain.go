package pattern

import (
	"fmt"
	"sync"

	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/jaeyo/go-drain3/pkg/drain3"
)

// Cluster is a Drain-discovered event: a template plus the lines assigned
// to it. EventID is a synthetic id (E1, E2, ...) stable within one mining
// run; ID is a globally unique identifier for the cluster.
type Cluster struct {
	ID       uuid.UUID
	EventID  string
	Template string
	Count    int
}

// Miner clusters unlabeled log lines into events using the Drain algorithm.
// It exists for corpora that arrive as flat log files without event labels;
// labeled Loghub corpora bypass it entirely.
type Miner struct {
	mu       sync.Mutex
	drain    *drain3.Drain
	eventIDs map[int64]string
	uuids    map[int64]uuid.UUID
	nextID   int
}

// NewMiner creates a Miner with default Drain parameters.
func NewMiner() (*Miner, error) {
	d, err := drain3.NewDrain(
		drain3.WithDepth(4),
		drain3.WithSimTh(0.4),
		drain3.WithExtraDelimiter([]string{"|", "=", ","}),
	)
	if err != nil {
		return nil, errors.Errorf("create drain: %w", err)
	}
	return &Miner{
		drain:    d,
		eventIDs: make(map[int64]string),
		uuids:    make(map[int64]uuid.UUID),
	}, nil
}

// Assign feeds one line through Drain and returns the event id of the
// cluster it lands in. Event ids are allocated in discovery order.
func (m *Miner) Assign(content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cluster, _, err := m.drain.AddLogMessage(content)
	if err != nil {
		return "", errors.Errorf("drain add: %w", err)
	}
	if cluster == nil {
		return "", errors.Errorf("drain returned no cluster")
	}
	id, ok := m.eventIDs[cluster.ClusterId]
	if !ok {
		m.nextID++
		id = fmt.Sprintf("E%d", m.nextID)
		m.eventIDs[cluster.ClusterId] = id
		m.uuids[cluster.ClusterId] = uuid.New()
	}
	return id, nil
}

// Clusters returns all discovered events with their templates and counts.
func (m *Miner) Clusters() []Cluster {
	m.mu.Lock()
	defer m.mu.Unlock()

	drainClusters := m.drain.GetClusters()
	clusters := make([]Cluster, 0, len(drainClusters))
	for _, c := range drainClusters {
		eventID, ok := m.eventIDs[c.ClusterId]
		if !ok {
			continue
		}
		clusters = append(clusters, Cluster{
			ID:       m.uuids[c.ClusterId],
			EventID:  eventID,
			Template: Normalize(c.GetTemplate()),
			Count:    int(c.Size),
		})
	}
	return clusters
}
