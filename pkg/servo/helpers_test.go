package servo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/transport"
	"github.com/gwillem/dxlservo/pkg/transport/sim"
)

type fixture struct {
	s       *Session
	bus     *sim.Bus
	dev     *sim.Device
	notices []Notice
	now     time.Time
}

func (f *fixture) kinds() []NoticeKind {
	var out []NoticeKind
	for _, n := range f.notices {
		out = append(out, n.Kind)
	}
	return out
}

func (f *fixture) count(kind NoticeKind) int {
	n := 0
	for _, k := range f.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func newFixture(t *testing.T, family profile.Family) *fixture {
	return newFixtureProto(t, family, transport.Protocol2)
}

func newFixtureProto(t *testing.T, family profile.Family, proto transport.Protocol) *fixture {
	t.Helper()
	f := &fixture{
		bus: sim.NewBus(proto),
		now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.dev = f.bus.AddDevice(1, family)

	s, err := New(Config{
		ID:        1,
		Profile:   profile.MustFor(family),
		Transport: f.bus,
		OnNotice:  func(n Notice) { f.notices = append(f.notices, n) },
		Settle:    SettleOptions{PollInterval: time.Microsecond},
		Now:       func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.s = s
	return f
}
