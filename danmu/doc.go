// Package danmu speaks the Douyu broadcast-chat gateway protocol: binary
// packet framing, the login/join handshake, keepalive heartbeats, and a
// reconnecting websocket session that feeds decoded frame payloads to a
// handler in arrival order.
//
// The package does not interpret frame contents beyond splitting them out of
// transport blobs; message decoding and routing live in the monitor package.
package danmu
