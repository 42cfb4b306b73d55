// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the webhook announcer. Short timeout: announcement
// delivery is fire-and-forget and must never pile up goroutines.
var HTTPClient = &http.Client{
	Timeout: 10 * time.Second,
}
