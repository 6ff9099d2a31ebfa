// Package discovery advertises and finds commsframe ingest servers with mDNS.
//
// Servers register the "_commsframe._tcp" service type with TXT records
// describing the websocket path, the frame they decode and their version.
//
// # Usage Example
//
//	ad, err := discovery.Advertise("bench-1", 8765, discovery.TXT{Path: "/ws", Frame: "sample"})
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
//
//	services, err := discovery.NewScanner().Scan(ctx)
//	for _, svc := range services {
//	    fmt.Println(svc.URL())
//	}
package discovery
