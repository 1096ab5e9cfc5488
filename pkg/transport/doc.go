// Package transport opens the byte streams a link runs over:
// serial ports, pseudo terminals and websockets.
package transport
