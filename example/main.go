package main

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	boxfs "github.com/feuerwagen/go-boxfs"
	"github.com/feuerwagen/go-boxfs/remote/gdrive"
)

func newAdapter(ctx context.Context, rootID string) *boxfs.Adapter {
	client, err := google.DefaultClient(ctx,
		drive.DriveScope,
	)
	if err != nil {
		log.Panic(err)
	}

	driveService, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		log.Panic(err)
	}
	adapter, err := boxfs.New(gdrive.New(driveService), boxfs.WithRootFolderID(rootID))
	if err != nil {
		log.Panic(err)
	}
	return adapter
}

var sc = func() *bufio.Scanner {
	sc := bufio.NewScanner(os.Stdin)
	sc.Split(bufio.ScanLines)
	return sc
}()

func step() {
	sc.Scan()
}

func main() {
	ctx := context.Background()

	// Use a shared drive or folder ID as root when given, otherwise My Drive
	rootID := gdrive.RootFolderID
	if len(os.Args) > 1 {
		rootID = os.Args[1]
	}
	adapter := newAdapter(ctx, rootID)

	// Walk through the directory structure; this builds the folder index
	err := fs.WalkDir(adapter.FS(ctx), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fmt.Printf("%s (ID: %s)\n", path, info.Sys().(boxfs.Attributes).ID)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Indexed folders: %d\n", adapter.IndexedFolders())

	// Write a file; missing parent directories are created first
	step()
	err = adapter.Write(ctx, "path/to/directory/example.txt", []byte("Hello, Google Drive!"))
	if err != nil {
		log.Fatal(err)
	}

	// Resolve the path to its remote ID
	step()
	item, err := adapter.Resolve(ctx, "path/to/directory/example.txt")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Resolved: %s (%s)\n", item.ID, item.Kind)

	// Read the file content
	step()
	data, err := adapter.Read(ctx, "path/to/directory/example.txt")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(data))

	// Inspect metadata
	step()
	attrs, err := adapter.Metadata(ctx, "path/to/directory/example.txt")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Size: %d, modified: %s, type: %s\n", attrs.Size, attrs.LastModified, attrs.MimeType)

	// Create directories one level per call
	step()
	for !adapter.DirectoryExists(ctx, "new/location") {
		if err := adapter.CreateDirectory(ctx, "new/location"); err != nil {
			log.Fatal(err)
		}
	}

	// List directory contents
	step()
	entries, err := adapter.ListContents(ctx, "path/to/directory", false)
	if err != nil {
		log.Fatal(err)
	}
	for _, entry := range entries {
		fmt.Printf("%s (folder: %v, ID: %s)\n", entry.Path, entry.IsDir(), entry.ID)
	}

	// Moving is not supported by the adapter
	step()
	if err := adapter.Move(ctx, "path/to/directory/example.txt", "new/location/example.txt"); err != nil {
		fmt.Printf("Move: %v\n", err)
	}

	// Delete the file and both directory trees
	step()
	if err := adapter.Delete(ctx, "path/to/directory/example.txt"); err != nil {
		log.Fatal(err)
	}
	for _, dir := range []string{"path", "new"} {
		if err := adapter.DeleteDirectory(ctx, dir); err != nil {
			log.Fatal(err)
		}
	}
}
