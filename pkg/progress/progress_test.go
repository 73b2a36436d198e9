package progress

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingIndicator struct {
	started []string
	stops   int
}

func (c *countingIndicator) Start(m string) { c.started = append(c.started, m) }
func (c *countingIndicator) Update(string)  {}
func (c *countingIndicator) Stop()          { c.stops++ }

func TestScopedStopsOnce(t *testing.T) {
	ind := &countingIndicator{}

	stop := Scoped(ind, "waiting")
	stop()
	stop()
	stop()

	assert.Equal(t, []string{"waiting"}, ind.started)
	assert.Equal(t, 1, ind.stops)
}

func TestLiveWritesMessage(t *testing.T) {
	var buf bytes.Buffer
	ind := NewTerminal(&buf).NewIndicator()

	ind.Start("Waiting for role instances")
	ind.Update("Waiting for role instances")
	ind.Stop()
	ind.Stop()

	assert.Contains(t, buf.String(), "Waiting for role instances")
}

func TestTransferPassesBytesThrough(t *testing.T) {
	var buf bytes.Buffer
	payload := strings.Repeat("x", 4096)

	tr := NewTerminal(&buf).NewTransfer(int64(len(payload)))
	out, err := io.ReadAll(tr.Wrap(strings.NewReader(payload)))
	tr.Finish()

	require.NoError(t, err)
	assert.Equal(t, payload, string(out))
}

func TestNop(t *testing.T) {
	var f Factory = Nop{}
	ind := f.NewIndicator()
	ind.Start("x")
	ind.Stop()

	r := strings.NewReader("abc")
	assert.Equal(t, r, f.NewTransfer(3).Wrap(r))
}
