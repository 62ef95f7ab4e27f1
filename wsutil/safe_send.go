package wsutil

import "log"

// SafeSend delivers data to a subscriber channel without panicking if the
// channel was closed by a concurrent unregister. It reports whether the
// message was delivered; a full channel drops the message rather than
// blocking the broadcaster.
func SafeSend(ch chan []byte, data []byte) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[wsutil] SafeSend recovered panic: %v", r)
			delivered = false
		}
	}()
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}
