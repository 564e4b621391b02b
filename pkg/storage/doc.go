// Package storage owns the on-disk layout of the dataset:
//
//	<output_root>/<category>/0000.jpg
//	<output_root>/<category>/0001.jpg
//	<output_root>/<category>/metadata.json
//	<output_root>/classes.json
//
// Asset writes go through Create, which returns a File to stream into and
// then Commit or Abort. With atomic writes enabled an aborted download leaves
// no file behind; with them disabled a truncated file may remain.
//
// Usage:
//
//	manager, err := storage.NewManager(&cfg.Output)
//	if err != nil {
//	    return err
//	}
//	dir, err := manager.EnsureCategoryDir("Amanita_muscaria")
//	f, err := manager.Create(manager.DestinationPath("Amanita_muscaria", 0))
//	if _, err := f.ReadFrom(body); err != nil {
//	    f.Abort()
//	    return err
//	}
//	return f.Commit()
package storage
