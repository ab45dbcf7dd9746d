// Package storage persists fetched tiles.
//
// Every target id maps to one artifact named <id>.png, and an artifact that
// exists is never fetched or written again. FileStore writes into a local
// directory through a temp file and rename; BlobStore writes objects to any
// gocloud.dev bucket (file://, mem://, s3://, gs://).
//
//	store, err := storage.Open(ctx, cfg.Output)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if done, _ := store.Exists(ctx, 42); !done {
//	    err = store.Save(ctx, 42, png)
//	}
package storage
