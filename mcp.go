package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mlinton/XVA1-Soft-Synth/internal/config"
	"github.com/mlinton/XVA1-Soft-Synth/internal/patch"
	"github.com/mlinton/XVA1-Soft-Synth/internal/protocol"
	"github.com/mlinton/XVA1-Soft-Synth/internal/session"
)

// runMCP serves the synth over MCP on stdio until stdin closes, ctx is
// cancelled or the connection to the synth is lost.
func runMCP(ctx context.Context, cfg *config.Config, verbose bool) error {
	return withSession(ctx, cfg, verbose, func(ctx context.Context, sess *session.Session) error {
		s := newMCPServer(cfg, sess)
		log.Println("Starting XVA1 MCP server...")
		return server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
	})
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(describeError(err))
}

func patchJSON(p *patch.Patch) (*mcp.CallToolResult, error) {
	asJson, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch to JSON: %v", err)
	}
	return mcp.NewToolResultText(string(asJson)), nil
}

func newMCPServer(cfg *config.Config, sess *session.Session) *server.MCPServer {
	s := server.NewMCPServer(
		"XVA1 MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	describeTool := mcp.NewTool("xva1_describe-parameters",
		mcp.WithDescription("Lists the XVA1 patch parameters: hardware address, JSON path and value options."),
		mcp.WithString("prefix", mcp.Description("Only list paths starting with this prefix (e.g. \"oscillators.0.\").")),
	)
	s.AddTool(describeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling describe parameters request.")
		var buf bytes.Buffer
		describeParameters(&buf, request.GetString("prefix", ""))
		return mcp.NewToolResultText(buf.String()), nil
	})

	getPatchTool := mcp.NewTool("xva1_get-patch",
		mcp.WithDescription("Returns the patch currently in the XVA1 edit buffer as JSON."),
	)
	s.AddTool(getPatchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling get patch request.")
		return patchJSON(sess.Patch())
	})

	getParamTool := mcp.NewTool("xva1_get-parameter",
		mcp.WithDescription("Returns one parameter of the current patch."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Parameter path, e.g. \"filters.0.cutoff\".")),
	)
	s.AddTool(getParamTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		v, err := sess.Patch().Get(path)
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s = %v (%s)", path, v, patch.Label(path, int(v)))), nil
	})

	updateTool := mcp.NewTool("xva1_update-parameter",
		mcp.WithDescription("Changes one parameter of the current patch and sends it to the synth."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Parameter path, e.g. \"filters.0.cutoff\".")),
		mcp.WithString("value", mcp.Required(), mcp.Description("A number 0-255, an option label, on/off, or a note name for sequencer steps.")),
	)
	s.AddTool(updateTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := request.RequireString("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		log.Println("[mcp] Updating", path, "to", text)

		v, err := parseValue(path, text)
		if err != nil {
			return toolError(err), nil
		}
		if err := sess.Update(path, v); err != nil {
			return toolError(err), nil
		}
		got, _ := sess.Patch().Get(path)
		return mcp.NewToolResultText(fmt.Sprintf("%s = %s", path, patch.Label(path, int(got)))), nil
	})

	sendPatchTool := mcp.NewTool("xva1_send-patch",
		mcp.WithDescription("Sends every parameter that differs from the current patch. Fields missing from the JSON are left unchanged."),
		mcp.WithString("patch-json", mcp.Required(), mcp.Description("The patch data in JSON format, as returned by xva1_get-patch.")),
	)
	s.AddTool(sendPatchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		patchJson, err := request.RequireString("patch-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		current := sess.Patch()
		want := current.Clone()
		if err := json.Unmarshal([]byte(patchJson), want); err != nil {
			return mcp.NewToolResultErrorf("failed to unmarshal patch JSON: %v", err), nil
		}
		changes := diffPatch(current, want)
		log.Printf("[mcp] Sending %d changed parameters.", len(changes))
		if err := applyChanges(sess, want, changes); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Patch sent successfully (%d parameters changed).", len(changes))), nil
	})

	addressTool := mcp.NewTool("xva1_send-parameter",
		mcp.WithDescription("Sends a raw value to a hardware parameter number without touching the local patch. For parameters the JSON patch does not model."),
		mcp.WithNumber("address", mcp.Required(), mcp.Description("The XVA1 parameter number (0-511).")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("The value (0-255).")),
	)
	s.AddTool(addressTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		addr, err := request.RequireInt("address")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		v, err := request.RequireFloat("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := sess.SendParameter(addr, v); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Parameter %d set to %d.", addr, patch.ByteValue(v))), nil
	})

	nameTool := mcp.NewTool("xva1_set-name",
		mcp.WithDescription("Renames the current patch (24 ASCII characters)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("The new patch name.")),
	)
	s.AddTool(nameTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := sess.SetName(name); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Patch renamed to %q.", sess.Patch().Name)), nil
	})

	stepsTool := mcp.NewTool("xva1_set-steps",
		mcp.WithDescription("Programs the step sequencer. Steps are note names (C4 = 60), numbers, \"on\", \"hold\" or \"r\" for a rest."),
		mcp.WithString("steps", mcp.Required(), mcp.Description("Up to 16 steps, separated by spaces or commas, e.g. \"C4 E4 G4 r\".")),
		mcp.WithBoolean("play", mcp.Description("Switch the sequencer on after programming it.")),
	)
	s.AddTool(stepsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("steps")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		steps, err := parseSteps(text)
		if err != nil {
			return toolError(err), nil
		}
		if err := applySteps(sess, steps); err != nil {
			return toolError(err), nil
		}
		if request.GetBool("play", false) {
			if err := sess.Update("step_sequencer.on", 1); err != nil {
				return toolError(err), nil
			}
		}
		return mcp.NewToolResultText("Steps: " + formatSteps(sess.Patch().StepSequencer)), nil
	})

	loadTool := mcp.NewTool("xva1_load-file",
		mcp.WithDescription("Loads a 512-byte .xva1 patch file into the synth's edit buffer."),
		mcp.WithString("file", mcp.Required(), mcp.Description("Path of the patch file. Relative paths are resolved against the patch directory.")),
	)
	s.AddTool(loadTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file, err := request.RequireString("file")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		file = patchFile(cfg, file)
		log.Println("[mcp] Loading", file)

		image, err := patch.LoadFile(file)
		if err != nil {
			return toolError(err), nil
		}
		if err := sess.LoadImage(ctx, image); err != nil {
			return toolError(err), nil
		}
		return patchJSON(sess.Patch())
	})

	saveTool := mcp.NewTool("xva1_save-file",
		mcp.WithDescription("Saves the current patch as a 512-byte .xva1 file."),
		mcp.WithString("file", mcp.Description("Path of the patch file. Defaults to the patch name in the patch directory.")),
	)
	s.AddTool(saveTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		file := request.GetString("file", "")
		if file == "" {
			file = patch.FileName(sess.Patch().Name)
		}
		file = patchFile(cfg, file)
		if err := patch.SaveFile(file, sess.Image()); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText("Saved " + file), nil
	})

	readSlotTool := mcp.NewTool("xva1_read-slot",
		mcp.WithDescription("Loads a stored program slot into the edit buffer and returns it as JSON."),
		mcp.WithNumber("slot", mcp.Required(), mcp.Description("The program slot (0-127).")),
	)
	s.AddTool(readSlotTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, err := request.RequireInt("slot")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		slot, err := protocol.ValidSlot(n)
		if err != nil {
			return toolError(err), nil
		}
		log.Println("[mcp] Reading slot", slot)
		if err := sess.ReadSlot(ctx, slot); err != nil {
			return toolError(err), nil
		}
		if err := waitSynced(ctx, sess); err != nil {
			return toolError(err), nil
		}
		return patchJSON(sess.Patch())
	})

	writeSlotTool := mcp.NewTool("xva1_write-slot",
		mcp.WithDescription("Stores the edit buffer in a program slot, overwriting it."),
		mcp.WithNumber("slot", mcp.Required(), mcp.Description("The program slot (0-127).")),
	)
	s.AddTool(writeSlotTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		n, err := request.RequireInt("slot")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		slot, err := protocol.ValidSlot(n)
		if err != nil {
			return toolError(err), nil
		}
		log.Println("[mcp] Writing slot", slot)
		if err := sess.WriteSlot(slot); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Stored %q in slot %d.", sess.Patch().Name, slot)), nil
	})

	resyncTool := mcp.NewTool("xva1_resync",
		mcp.WithDescription("Requests a fresh dump of the edit buffer and returns it as JSON."),
	)
	s.AddTool(resyncTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Resyncing.")
		if err := sess.RequestPatch(ctx); err != nil {
			return toolError(err), nil
		}
		if err := waitSynced(ctx, sess); err != nil {
			return toolError(err), nil
		}
		return patchJSON(sess.Patch())
	})

	rawTool := mcp.NewTool("xva1_send-raw",
		mcp.WithDescription("Sends text to the synth unchanged. For diagnostics."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The bytes to send.")),
	)
	s.AddTool(rawTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := sess.SendRaw(text); err != nil {
			return toolError(err), nil
		}
		// Give the synth a moment before the caller sends more.
		time.Sleep(50 * time.Millisecond)
		return mcp.NewToolResultText("Sent " + protocol.Describe(protocol.Raw(text))), nil
	})

	return s
}

func patchFile(cfg *config.Config, file string) string {
	if filepath.IsAbs(file) || cfg.PatchDir == "" {
		return file
	}
	return filepath.Join(cfg.PatchDir, file)
}
