package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/imgquota/adapters/hasher"
	"github.com/artpar/imgquota/adapters/random"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [key]",
	Short: "Hash a service key for auth.service_key_hashes",
	Long: `Print the bcrypt hash of a service key.

Put the hash in auth.service_key_hashes (or IMGQUOTA_SERVICE_KEY_HASH) and send
the plain key in the X-Service-Key header. The key is read from stdin when
not given as an argument. --generate creates a new random key and prints it
above its hash.

Examples:
  imgquota hash-key --generate
  imgquota hash-key s3cr3t
  echo -n s3cr3t | imgquota hash-key`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashKey,
}

var (
	hashKeyCost     int
	hashKeyGenerate bool
)

func init() {
	rootCmd.AddCommand(hashKeyCmd)

	hashKeyCmd.Flags().IntVar(&hashKeyCost, "cost", 0, "bcrypt cost (default: library default)")
	hashKeyCmd.Flags().BoolVar(&hashKeyGenerate, "generate", false, "generate a random key")
}

func runHashKey(cmd *cobra.Command, args []string) error {
	var key string
	switch {
	case hashKeyGenerate:
		k, err := random.ServiceKey(random.Real{})
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		key = k
		fmt.Fprintln(cmd.OutOrStdout(), key)
	case len(args) == 1:
		key = args[0]
	default:
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read key: %w", err)
		}
		key = strings.TrimRight(line, "\r\n")
	}
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}

	hash, err := hasher.NewBcrypt(hashKeyCost).Hash(key)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(hash))
	return nil
}
