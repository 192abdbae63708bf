package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPortDeterministic(t *testing.T) {
	port1 := HTTPPort("api_service")
	port2 := HTTPPort("api_service")
	assert.Equal(t, port1, port2)
}

func TestHTTPPortInRange(t *testing.T) {
	for _, name := range []string{"a", "api_service", "a-very-long-endpoint-name-with-many-bytes", ""} {
		port := HTTPPort(name)
		assert.GreaterOrEqual(t, port, 9000, "endpoint %q", name)
		assert.Less(t, port, 10000, "endpoint %q", name)
	}
}

func TestHTTPPortKnownValue(t *testing.T) {
	// acc("ab") = 'a'*31 + 'b' = 97*31 + 98 = 3105
	assert.Equal(t, 9000+3105%1000, HTTPPort("ab"))
}

func TestHTTPAddressFormat(t *testing.T) {
	addr := HTTP("api_service")
	require.Regexp(t, `^127\.0\.0\.1:9\d{3}$`, addr)
}

func TestPipeAddress(t *testing.T) {
	assert.Equal(t, "/tmp/api_service", Pipe("api_service"))
}

func TestDifferentNamesUsuallyDifferentPorts(t *testing.T) {
	// Not guaranteed in general, but these two do not collide.
	assert.NotEqual(t, HTTPPort("pipe_a"), HTTPPort("pipe_b"))
}
