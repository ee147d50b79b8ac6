package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"dbal/internal/blob"
	"dbal/internal/config"
	"dbal/internal/dbalerr"
)

type blobFlags struct {
	ttl time.Duration
}

func blobCmd() *cobra.Command {
	flags := &blobFlags{}
	cmd := &cobra.Command{
		Use:   "blob",
		Short: "Upload, download, and manage blobs against the DBAL_BLOB_* configured backend",
	}

	cmd.AddCommand(blobUploadCmd())
	cmd.AddCommand(blobDownloadCmd())
	cmd.AddCommand(blobDeleteCmd())
	cmd.AddCommand(blobListCmd())
	cmd.AddCommand(blobPresignCmd(flags))
	return cmd
}

func openBlobStore() (blob.Store, error) {
	cfg, err := config.LoadBlobConfig()
	if err != nil {
		return nil, err
	}
	return config.NewBlobStore(cfg)
}

func blobUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <key> <file>",
		Short: "Upload a local file to a blob key",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			key, path := args[0], args[1]
			data, err := os.ReadFile(path)
			if err != nil {
				return printErr(dbalerr.Internal("reading %q: %v", path, err))
			}
			store, err := openBlobStore()
			if err != nil {
				return printErr(err)
			}
			meta, err := store.Upload(context.Background(), key, data, blob.UploadOptions{})
			if err != nil {
				return printErr(err)
			}
			printMeta(meta)
			return nil
		},
	}
	return cmd
}

func blobDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <key> <file>",
		Short: "Download a blob key to a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			key, path := args[0], args[1]
			store, err := openBlobStore()
			if err != nil {
				return printErr(err)
			}
			data, err := store.Download(context.Background(), key, blob.DownloadOptions{})
			if err != nil {
				return printErr(err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return printErr(dbalerr.Internal("writing %q: %v", path, err))
			}
			fmt.Printf("wrote %d byte(s) to %s\n", len(data), path)
			return nil
		},
	}
	return cmd
}

func blobDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a blob key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := openBlobStore()
			if err != nil {
				return printErr(err)
			}
			if err := store.Delete(context.Background(), args[0]); err != nil {
				return printErr(err)
			}
			fmt.Println("deleted")
			return nil
		},
	}
	return cmd
}

func blobListCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List blob keys, optionally filtered by prefix",
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := openBlobStore()
			if err != nil {
				return printErr(err)
			}
			result, err := store.List(context.Background(), blob.ListOptions{Prefix: prefix})
			if err != nil {
				return printErr(err)
			}
			b, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list keys with this prefix")
	return cmd
}

func blobPresignCmd(flags *blobFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presign <key>",
		Short: "Generate a presigned URL for a blob key (S3 backend only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := openBlobStore()
			if err != nil {
				return printErr(err)
			}
			url, err := store.GeneratePresignedURL(context.Background(), args[0], flags.ttl)
			if err != nil {
				return printErr(err)
			}
			if url == "" {
				fmt.Println("backend does not support presigned URLs")
				return nil
			}
			fmt.Println(url)
			return nil
		},
	}
	cmd.Flags().DurationVar(&flags.ttl, "ttl", time.Hour, "presigned URL lifetime")
	return cmd
}

func printMeta(meta blob.Metadata) {
	b, _ := json.MarshalIndent(meta, "", "  ")
	fmt.Println(string(b))
}
