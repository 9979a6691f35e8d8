package metrics

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteHTTPRequest records a handled HTTP request.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - method: HTTP method (GET, POST, ...)
//   - route: the matched route pattern, not the raw path (low cardinality)
//   - status: HTTP response status code
//   - duration: time spent handling the request
func (c *Client) WriteHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"http_requests",
		map[string]string{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		},
		map[string]interface{}{
			"duration_ms": float64(duration.Microseconds()) / 1000.0,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteMutation records a successful record mutation (ADD, EDIT, DELETE).
//
// Parameters:
//   - channel: the notification channel the event was published on
//   - event: the event tag
func (c *Client) WriteMutation(channel, event string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"mutations",
		map[string]string{
			"channel": channel,
			"event":   event,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
