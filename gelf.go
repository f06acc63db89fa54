/*
Package gelf provides a Graylog Extended Log Format (GELF) client that sends
log events to one or more collectors over UDP, including:

  - `gelf.Client` - builds, compresses and delivers GELF messages, choosing a
    collector round-robin for every message
  - `gelf.ChunkEncoder` - splits payloads larger than one datagram into GELF
    chunks (12 byte header, at most 128 chunks per message)
  - `gelf.UDPTransport` - owns the single, lazily created UDP socket shared by
    every message
  - `gelf.Handler` - serializes structured logs (implements `slog.Handler`) and
    hands them to the Client

Delivery is fire-and-forget. A message that fails at any stage is reported to
the internal logger and to the optional completion callback, and is never
retried. When one chunk of a chunked message fails to send, the remaining
chunks are not sent; the collector discards the incomplete message.

	c, err := gelf.NewClient(&gelf.ClientOptions{
		Endpoints: []gelf.Endpoint{{Host: "graylog-1", Port: 12201}, {Host: "graylog-2", Port: 12201}},
		Facility:  "billing",
	})
	if err != nil {
		log.Fatalln(err)
	}
	defer c.Close()

	c.Warning("card declined", &gelf.Details{Fields: map[string]any{"customer": id}})
*/
package gelf
