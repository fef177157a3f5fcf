package signing

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seclave/hsign/cmd/hsign-cli/utils"
	"github.com/seclave/hsign/pkg/wire"
)

var (
	natsURL string
	subject string
	timeout time.Duration

	txFile string
)

// NewSigningCmd creates the signing command group
func NewSigningCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "signing",
		Short: "Signing commands",
		Long:  "Commands for running a signing session against the device",
	}

	cmd.PersistentFlags().StringVarP(&natsURL, "nats-url", "u", "", "NATS server URL")
	cmd.PersistentFlags().StringVarP(&subject, "subject", "s", "", "Device request subject")
	cmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Per-request timeout")

	cmd.AddCommand(newSignCmd())

	return cmd
}

func newSignCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "sign",
		Short: "Sign a transaction",
		Long:  "Stream a transaction described in a JSON file through the device and print the input signatures",
		RunE:  signTransaction,
	}

	cmd.Flags().StringVarP(&txFile, "file", "f", "", "Path to transaction JSON file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// transaction is the on-disk description of what to sign.
type transaction struct {
	Coin     string   `json:"coin"`
	Version  uint32   `json:"version"`
	LockTime uint32   `json:"locktime"`
	Keypath  string   `json:"keypath"`
	Inputs   []input  `json:"inputs"`
	Outputs  []output `json:"outputs"`
}

type input struct {
	PrevOutHash  string `json:"prev_out_hash"`
	PrevOutIndex uint32 `json:"prev_out_index"`
	PrevOutValue uint64 `json:"prev_out_value"`
	Sequence     uint32 `json:"sequence"`
	Keypath      string `json:"keypath"`
}

type output struct {
	Value   uint64 `json:"value"`
	Payload string `json:"payload"`
	Ours    bool   `json:"ours"`
	Keypath string `json:"keypath"`
}

func signTransaction(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(txFile)
	if err != nil {
		return fmt.Errorf("failed to read transaction file: %w", err)
	}

	var tx transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return fmt.Errorf("failed to parse transaction file: %w", err)
	}

	basePath, err := utils.ParseKeypath(tx.Keypath)
	if err != nil {
		return err
	}

	conn, err := utils.Dial(natsURL, subject, timeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	next, err := conn.Client.SignInit(&wire.SignInitRequest{
		Coin:       tx.Coin,
		Version:    tx.Version,
		LockTime:   tx.LockTime,
		NumInputs:  uint32(len(tx.Inputs)),
		NumOutputs: uint32(len(tx.Outputs)),
		Keypath:    basePath,
	})
	if err != nil {
		return err
	}

	for i, in := range tx.Inputs {
		if next.Next != wire.SignNextInput {
			return fmt.Errorf("device expected %q, have input %d", next.Next, i)
		}

		prevOutHash, err := hex.DecodeString(in.PrevOutHash)
		if err != nil {
			return fmt.Errorf("input %d: invalid prev_out_hash: %w", i, err)
		}

		var keypath []uint32
		if in.Keypath != "" {
			if keypath, err = utils.ParseKeypath(in.Keypath); err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
		}

		next, err = conn.Client.SignInput(&wire.SignInputRequest{
			PrevOutHash:  prevOutHash,
			PrevOutIndex: in.PrevOutIndex,
			PrevOutValue: in.PrevOutValue,
			Sequence:     in.Sequence,
			Keypath:      keypath,
		})
		if err != nil {
			return err
		}

		fmt.Printf("input %d: %s\n", i, hex.EncodeToString(next.Signature))
	}

	for i, out := range tx.Outputs {
		if next.Next != wire.SignNextOutput {
			return fmt.Errorf("device expected %q, have output %d", next.Next, i)
		}

		payload, err := hex.DecodeString(out.Payload)
		if err != nil {
			return fmt.Errorf("output %d: invalid payload: %w", i, err)
		}

		var keypath []uint32
		if out.Keypath != "" {
			if keypath, err = utils.ParseKeypath(out.Keypath); err != nil {
				return fmt.Errorf("output %d: %w", i, err)
			}
		}

		next, err = conn.Client.SignOutput(&wire.SignOutputRequest{
			Value:   out.Value,
			Payload: payload,
			Ours:    out.Ours,
			Keypath: keypath,
		})
		if err != nil {
			return err
		}
	}

	if next.Next != wire.SignNextDone {
		return fmt.Errorf("device did not finish the session, last state %q", next.Next)
	}

	fmt.Println("Signing session complete")
	return nil
}
