package simulator

import (
	"context"
	"io/ioutil"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/mosaicnetworks/trustflood/src/config"
	"github.com/mosaicnetworks/trustflood/src/node"
	"github.com/mosaicnetworks/trustflood/src/peers"
	"github.com/sirupsen/logrus"
)

func waitRounds(t *testing.T, sim *Simulator, rounds uint64) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for {
		done := true
		for _, n := range sim.Nodes() {
			if n.Rounds() < rounds {
				done = false
			}
		}
		if done {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d rounds", rounds)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func checkScore(t *testing.T, n *node.Node, peer uint32, expected peers.Score) {
	t.Helper()
	if got := n.PeerScores()[peer]; got != expected {
		t.Fatalf("node %d should score peer %d %v, not %v", n.ID(), peer, expected, got)
	}
}

func TestFormatScores(t *testing.T) {
	scores := map[uint32]peers.Score{
		3: peers.Negative,
		0: peers.Positive,
		2: peers.Default,
	}

	if s := formatScores(scores); s != "{0:1 2:0.5 3:0}" {
		t.Fatalf("scores should be formatted in peer order, got %s", s)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Nodes = 0

	if _, err := NewSimulator(conf); err == nil {
		t.Fatal("NewSimulator should fail with an invalid config")
	}
}

func TestSimulatorWiring(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Nodes = 4
	conf.Corrupt = []uint32{3}

	sim, err := NewSimulator(conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Stop()

	if sim.RunID() == "" {
		t.Fatal("simulation should have a run id")
	}

	nodes := sim.Nodes()
	if len(nodes) != 4 {
		t.Fatalf("simulation should have 4 nodes, not %d", len(nodes))
	}

	for i, n := range nodes {
		if n.ID() != uint32(i) {
			t.Fatalf("node %d has id %d", i, n.ID())
		}
		if p := len(n.Peers()); p != 3 {
			t.Fatalf("node %d should have 3 peers, not %d", i, p)
		}
		if s := n.State(); s != node.Connected {
			t.Fatalf("node %d should be Connected, not %v", i, s)
		}
	}

	if ids := nodes[2].Peers(); !reflect.DeepEqual(ids, []uint32{0, 1, 3}) {
		t.Fatalf("node 2 should be connected to [0 1 3] in order, not %v", ids)
	}

	if _, ok := sim.Node(4); ok {
		t.Fatal("node 4 should not exist")
	}

	if l := len(sim.Consumer().PerfScores()); l != 4 {
		t.Fatalf("consumer should score 4 nodes, not %d", l)
	}

	roles := sim.NodeRoles()
	if roles[3] != "corrupt" || roles[0] != "honest" {
		t.Fatalf("unexpected roles %v", roles)
	}
}

func TestSimulatorCorruptNode(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Nodes = 3
	conf.Events = 3
	conf.Seed = 42
	conf.Corrupt = []uint32{2}

	sim, err := NewSimulator(conf)
	if err != nil {
		t.Fatal(err)
	}

	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitRounds(t, sim, 3)

	n0, _ := sim.Node(0)
	n1, _ := sim.Node(1)
	n2, _ := sim.Node(2)

	checkScore(t, n0, 1, peers.Positive)
	checkScore(t, n0, 2, peers.Negative)
	checkScore(t, n1, 0, peers.Positive)
	checkScore(t, n1, 2, peers.Negative)
	checkScore(t, n2, 0, peers.Positive)
	checkScore(t, n2, 1, peers.Positive)

	if err := sim.Stop(); err != nil {
		t.Fatal(err)
	}

	for _, n := range sim.Nodes() {
		if l := sim.Store().LastVerdictIndex(n.ID()); l != 2 {
			t.Fatalf("node %d should have 3 verdicts, last index is %d", n.ID(), l)
		}
	}

	if r := sim.Consumer().Received(); r != 9 {
		t.Fatalf("consumer should have 9 notifications, not %d", r)
	}

	stats := sim.GetStats()
	if stats["injected"] != "3" || stats["median_rounds"] != "3" {
		t.Fatalf("unexpected stats %v", stats)
	}
	if stats["negative_scores"] != "2" {
		t.Fatalf("2 scores should be negative, stats say %s", stats["negative_scores"])
	}

	// second Stop is harmless
	if err := sim.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestSimulatorSilentNode(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Nodes = 3
	conf.Events = 2
	conf.CollectTimeout = 50 * time.Millisecond
	conf.Silent = []uint32{1}

	sim, err := NewSimulator(conf)
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Stop()

	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitRounds(t, sim, 2)

	n0, _ := sim.Node(0)
	n1, _ := sim.Node(1)

	checkScore(t, n0, 1, peers.Default)
	checkScore(t, n0, 2, peers.Positive)
	checkScore(t, n1, 0, peers.Positive)
	checkScore(t, n1, 2, peers.Positive)
}

func TestSimulatorCancel(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Events = 1000
	conf.Interval = time.Second

	sim, err := NewSimulator(conf)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := sim.Run(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Run should return DeadlineExceeded, not %v", err)
	}

	if err := sim.Stop(); err != nil {
		t.Fatal(err)
	}

	for _, n := range sim.Nodes() {
		if s := n.State(); s != node.Stopped {
			t.Fatalf("node %d should be Stopped, not %v", n.ID(), s)
		}
	}

	if err := sim.Run(context.Background()); err == nil {
		t.Fatal("a stopped simulation should not run again")
	}
}

func TestSimulatorBadgerStore(t *testing.T) {
	dir, err := ioutil.TempDir("", "trustflood_sim")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	conf := config.NewTestConfig(t, logrus.InfoLevel)
	conf.Events = 2
	conf.Store = true
	conf.DatabaseDir = dir

	sim, err := NewSimulator(conf)
	if err != nil {
		t.Fatal(err)
	}

	if err := sim.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	waitRounds(t, sim, 2)

	st := sim.Store()
	if st.StorePath() != dir {
		t.Fatalf("store path should be %s, not %s", dir, st.StorePath())
	}

	v, err := st.GetVerdict(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.EventID != 1 || v.Count(peers.Positive) != 2 {
		t.Fatalf("unexpected verdict %+v", v)
	}

	if err := sim.Stop(); err != nil {
		t.Fatal(err)
	}
}
