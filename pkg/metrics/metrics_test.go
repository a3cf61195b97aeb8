package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Incr("onscene.request.count", []string{BuildTag("status", "ok")})
	r.Incr("onscene.request.count", []string{BuildTag("status", "ok")})
	r.Incr("onscene.request.count", []string{BuildTag("status", "MissingShiftTeams")})
	r.Timing("onscene.latency_ms", 15*time.Millisecond, []string{BuildTag("phase", "total")})
	r.Distribution("onscene.shadow.delta_minutes", 2.5, []string{"shadow_version:v2"})

	assert.Equal(t, 2.0, r.Sum("onscene.request.count", "status:ok"))
	assert.Equal(t, 3.0, r.Sum("onscene.request.count"))
	assert.Len(t, r.Events("onscene.latency_ms"), 1)
	assert.Equal(t, 15.0, r.Events("onscene.latency_ms")[0].Value)

	delta := r.Events("onscene.shadow.delta_minutes")
	assert.Len(t, delta, 1)
	assert.Equal(t, KindDistribution, delta[0].Kind)
	assert.True(t, delta[0].HasTags("shadow_version:v2"))
	assert.False(t, delta[0].HasTags("shadow_version:v3"))
}

func TestNoopImplementsClient(t *testing.T) {
	var c Client = Noop{}
	c.Incr("x", nil)
	c.Distribution("y", 1, nil)
}
