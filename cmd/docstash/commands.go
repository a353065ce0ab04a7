package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF document for ingestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		resp, err := client.uploadFile(args[0])
		if err != nil {
			printError("upload failed: %v", err)
			return err
		}
		printSuccess("uploaded %s", args[0])
		printJSON(resp)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		tagID, _ := cmd.Flags().GetInt64("tag")

		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(pageSize))
		if tagID > 0 {
			q.Set("tag_id", strconv.FormatInt(tagID, 10))
		}

		client := newAPIClient()
		resp, err := client.get("/documents?" + q.Encode())
		if err != nil {
			printError("list failed: %v", err)
			return err
		}
		printJSON(resp)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch one document with its extracted text and tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		resp, err := client.get("/documents/" + url.PathEscape(args[0]))
		if err != nil {
			printError("get failed: %v", err)
			return err
		}
		printJSON(resp)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document, its index entry, and its file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		if _, err := client.delete("/documents/" + url.PathEscape(args[0])); err != nil {
			printError("delete failed: %v", err)
			return err
		}
		printSuccess("deleted document %s", args[0])
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search documents by content",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		q.Set("q", strings.Join(args, " "))

		client := newAPIClient()
		resp, err := client.get("/search?" + q.Encode())
		if err != nil {
			printError("search failed: %v", err)
			return err
		}
		printJSON(resp)
		return nil
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags and document-tag associations",
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		resp, err := client.get("/tags")
		if err != nil {
			printError("tag list failed: %v", err)
			return err
		}
		printJSON(resp)
		return nil
	},
}

var tagCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		resp, err := client.post("/tags", map[string]string{"name": args[0]})
		if err != nil {
			printError("tag create failed: %v", err)
			return err
		}
		printSuccess("created tag %q", args[0])
		printJSON(resp)
		return nil
	},
}

var tagDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a tag and detach it from every document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		if _, err := client.delete("/tags/" + url.PathEscape(args[0])); err != nil {
			printError("tag delete failed: %v", err)
			return err
		}
		printSuccess("deleted tag %s", args[0])
		return nil
	},
}

var tagAttachCmd = &cobra.Command{
	Use:   "attach <document-id> <tag-id>",
	Short: "Attach a tag to a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		path := fmt.Sprintf("/documents/%s/tags/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
		if _, err := client.post(path, nil); err != nil {
			printError("tag attach failed: %v", err)
			return err
		}
		printSuccess("attached tag %s to document %s", args[1], args[0])
		return nil
	},
}

var tagDetachCmd = &cobra.Command{
	Use:   "detach <document-id> <tag-id>",
	Short: "Detach a tag from a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		path := fmt.Sprintf("/documents/%s/tags/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
		if _, err := client.delete(path); err != nil {
			printError("tag detach failed: %v", err)
			return err
		}
		printSuccess("detached tag %s from document %s", args[1], args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient()
		if _, err := client.get("/health"); err != nil {
			printStatus("Server", "stopped (%v)", err)
			return nil
		}
		printStatus("Server", "running at %s", client.baseURL)

		if resp, err := client.get("/documents?page=1&page_size=1"); err == nil {
			printStatus("Documents", "%s", totalFromList(resp))
		}
		if resp, err := client.get("/tags"); err == nil {
			printStatus("Tags", "%s", totalFromList(resp))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int("page", 1, "page number (1-based)")
	listCmd.Flags().Int("page-size", 20, "documents per page (max 100)")
	listCmd.Flags().Int64("tag", 0, "filter by tag id")

	tagCmd.AddCommand(tagListCmd)
	tagCmd.AddCommand(tagCreateCmd)
	tagCmd.AddCommand(tagDeleteCmd)
	tagCmd.AddCommand(tagAttachCmd)
	tagCmd.AddCommand(tagDetachCmd)
}

func totalFromList(raw []byte) string {
	var v struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "unknown"
	}
	return strconv.Itoa(v.Total)
}
