// Package webhdfs implements a client for the WebHDFS REST API.
//
// The client talks plain HTTP to a Hadoop namenode and to the datanodes it
// redirects to, so it works against any Hadoop-compatible cluster without
// native HDFS libraries or a JVM.
//
// Features:
//   - Streamed file upload and download
//   - Directory listing, creation, removal and rename
//   - File status, content summary and existence checks
//   - Typed errors carrying the server's exception class
//   - Optional namenode request throttling
//
// Usage:
//
//	client, err := webhdfs.New(webhdfs.Config{
//	    Host: "namenode",
//	    Port: 50070,
//	    User: "hdfs",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	var buf bytes.Buffer
//	if err := client.ReadFile(ctx, "/data/input.csv", &buf, nil); err != nil {
//	    log.Fatal(err)
//	}
//
// A Client mutates its transport handle per call and must not be shared
// between goroutines; create one Client per worker instead.
package webhdfs
