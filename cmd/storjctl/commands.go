package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/storj"
	"github.com/input-output-hk/catalyst-forge-libs/storj/errors"
	"github.com/input-output-hk/catalyst-forge-libs/storj/storjtypes"
)

// metadataFlags are the flags shared by upload and update-metadata.
type metadataFlags struct {
	contentType string
	disposition string
	filename    string
	meta        map[string]string
}

func (f *metadataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.contentType, "content-type", "", "content type stored with the object")
	cmd.Flags().StringVar(&f.disposition, "disposition", "", "content disposition kind (inline, attachment)")
	cmd.Flags().StringVar(&f.filename, "filename", "", "filename advertised in the content disposition (requires --disposition)")
	cmd.Flags().StringToStringVar(&f.meta, "meta", nil, "custom metadata as key=value, repeatable")
}

func (f *metadataFlags) options() ([]storjtypes.UploadOption, error) {
	var opts []storjtypes.UploadOption
	if f.contentType != "" {
		opts = append(opts, storj.WithContentType(f.contentType))
	}
	switch storjtypes.Disposition(f.disposition) {
	case "":
	case storjtypes.DispositionInline, storjtypes.DispositionAttachment:
		opts = append(opts, storj.WithDisposition(storjtypes.Disposition(f.disposition)))
	default:
		return nil, errors.NewError("parseFlags", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unsupported disposition %q", f.disposition))
	}
	if f.filename != "" {
		opts = append(opts, storj.WithFilename(f.filename))
	}
	if len(f.meta) > 0 {
		opts = append(opts, storj.WithCustomMetadata(f.meta))
	}
	return opts, nil
}

func (a *app) uploadCmd() *cobra.Command {
	var (
		md       metadataFlags
		checksum string
		verify   bool
	)

	cmd := &cobra.Command{
		Use:   "upload <local-file> <key>",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := md.options()
			if err != nil {
				return err
			}

			path, err := localPath(args[0])
			if err != nil {
				return err
			}
			data, err := readFile(a.fs, path)
			if err != nil {
				return err
			}

			if verify && checksum == "" {
				checksum = storj.Checksum(data)
			}
			if checksum != "" {
				opts = append(opts, storj.WithChecksum(checksum))
			}

			result, err := a.client.Put(cmd.Context(), args[1], data, opts...)
			if err != nil {
				return err
			}

			mode := "single"
			if result.Multipart {
				mode = "multipart"
			}
			fmt.Fprintf(a.out, "uploaded %s (%d bytes, %s, %d parts) in %s\n",
				result.Key, result.Size, mode, result.Parts, result.Duration.Round(time.Millisecond))
			return nil
		},
	}

	md.register(cmd)
	cmd.Flags().StringVar(&checksum, "checksum", "", "expected base64 MD5 of the file")
	cmd.Flags().BoolVar(&verify, "verify", false, "compute the MD5 of the file and have it verified")
	return cmd
}

func (a *app) downloadCmd() *cobra.Command {
	var offset, length int64

	cmd := &cobra.Command{
		Use:   "download <key> <local-file>",
		Short: "Download an object, or a byte range of it, to a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := args[0]

			var opts []storjtypes.DownloadOption
			if cmd.Flags().Changed("offset") || cmd.Flags().Changed("length") {
				if !cmd.Flags().Changed("length") {
					info, err := a.client.Object(ctx, key)
					if err != nil {
						return err
					}
					length = max(info.Size-offset, 0)
				}
				opts = append(opts, storj.WithRange(offset, length))
			}

			path, err := localPath(args[1])
			if err != nil {
				return err
			}
			f, err := a.fs.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}

			var written int64
			err = a.client.Stream(ctx, key, func(chunk []byte) error {
				n, err := f.Write(chunk)
				written += int64(n)
				return err
			}, opts...)
			if cerr := f.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("failed to close %s: %w", path, cerr)
			}
			if err != nil {
				_ = a.fs.Remove(path)
				return err
			}

			fmt.Fprintf(a.out, "downloaded %s to %s (%d bytes)\n", key, path, written)
			return nil
		},
	}

	cmd.Flags().Int64Var(&offset, "offset", 0, "first byte to download")
	cmd.Flags().Int64Var(&length, "length", 0, "number of bytes to download (default: to the end)")
	return cmd
}

func (a *app) statCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <key>",
		Short: "Show object information as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.client.Object(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(struct {
				Key      string            `json:"key"`
				Size     int64             `json:"size"`
				Created  time.Time         `json:"created"`
				Metadata map[string]string `json:"metadata,omitempty"`
			}{info.Key, info.Size, info.Created, info.Custom}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(out))
			return nil
		},
	}
}

func (a *app) existsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists <key>",
		Short: "Report whether an object exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exists, err := a.client.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, exists)
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete an object; deleting a missing object succeeds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

func (a *app) deletePrefixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-prefix <prefix>",
		Short: "Delete every object under a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.client.DeletePrefixed(cmd.Context(), args[0])
			if result != nil {
				for _, key := range result.Deleted {
					fmt.Fprintf(a.out, "deleted %s\n", key)
				}
			}
			return err
		},
	}
}

func (a *app) composeCmd() *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "compose <dest-key> <source-key>...",
		Short: "Concatenate objects, in order, into a new object",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []storjtypes.UploadOption
			if contentType != "" {
				opts = append(opts, storj.WithContentType(contentType))
			}

			result, err := a.client.Compose(cmd.Context(), args[1:], args[0], opts...)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "composed %s from %d objects (%d bytes)\n", result.Key, len(args)-1, result.Size)
			return nil
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "", "content type of the composed object")
	return cmd
}

func (a *app) urlCmd() *cobra.Command {
	var expiresIn time.Duration

	cmd := &cobra.Command{
		Use:   "url <key>",
		Short: "Print a download URL for an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.client.URL(cmd.Context(), args[0], storj.WithExpiresIn(expiresIn))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, u)
			return nil
		},
	}

	cmd.Flags().DurationVar(&expiresIn, "expires-in", storj.DefaultURLExpiry, "validity of private URLs")
	return cmd
}

func (a *app) updateMetadataCmd() *cobra.Command {
	var md metadataFlags

	cmd := &cobra.Command{
		Use:   "update-metadata <key>",
		Short: "Replace the metadata of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := md.options()
			if err != nil {
				return err
			}
			if err := a.client.UpdateMetadata(cmd.Context(), args[0], opts...); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "updated %s\n", args[0])
			return nil
		},
	}

	md.register(cmd)
	return cmd
}
