// Package storj provides a chunked object transfer client for the Storj
// decentralized storage network.
//
// The client stores and retrieves objects through a narrow backend interface
// (see package backend) and takes care of the transfer mechanics: choosing
// between single-part and multipart uploads, bounding every write and read to
// a chunk size, range reads, streaming downloads and object composition.
//
// Key features:
//   - Automatic multipart upload above a configurable threshold (5 MiB minimum)
//   - Chunked reads and writes that tolerate short writes and short reads
//   - Streaming downloads through a pooled chunk buffer
//   - MD5 integrity check before anything is written
//   - Content type detection and RFC 5987 content dispositions
//   - Native uplink, S3 gateway and in-memory backends
//
// Example usage:
//
//	b, err := network.New(ctx, network.Config{AccessGrant: grant})
//	if err != nil {
//	    return err
//	}
//
//	client, err := storj.New(b, "media", storj.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	result, err := client.Put(ctx, "avatars/1.png", data,
//	    storj.WithChecksum(checksum),
//	    storj.WithFilename("avatar.png"),
//	)
package storj
