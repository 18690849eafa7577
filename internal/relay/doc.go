// Package relay implements the radio's WebSocket relay.
//
// Every binary message from one client is forwarded unchanged to every other
// connected client. The relay never decodes audio; it only answers "ping",
// forwards "clear", and serves /health plus the static browser pages.
//
//	s, err := relay.NewServer(relay.Config{Addr: ":10000", StaticDir: "public"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	go s.Start()
//	defer s.Stop()
package relay
