/*
Package transport provides a websocket and a local transport implementation.
The local transport is for in-process connection of a client to the engine.
Each transport implements the wamp.Peer interface, which carries the wire form
of messages between the engine and a particular transport.

*/
package transport
