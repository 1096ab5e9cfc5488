package transport

import (
	"io"
	"net/http"

	"golang.org/x/net/websocket"
)

// DialWebsocket connects to a websocket serving a link.
func DialWebsocket(url string) (*websocket.Conn, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

// WebsocketHandler serves every websocket connection as a byte stream.
// The connection is closed when serve returns.
func WebsocketHandler(serve func(io.ReadWriteCloser)) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		serve(conn)
	})
}
