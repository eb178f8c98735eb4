package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/propscrape/models"
)

func main() {
	apiURL := os.Getenv("PROPSCRAPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiURL = strings.TrimRight(apiURL, "/")

	s := newServer(apiURL, &http.Client{Timeout: 120 * time.Second})

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL string, client *http.Client) *server.MCPServer {
	s := server.NewMCPServer(
		"propscrape",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_listing",
		mcp.WithDescription("Scrape a property listing page and store its title, location, price and image as a job record. Uses a headless browser to render the page."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the listing page to scrape"),
		),
	)
	s.AddTool(scrapeTool, handleScrapeListing(apiURL, client))

	listTool := mcp.NewTool("list_listings",
		mcp.WithDescription("List every scrape job, most recent first, with its status and extracted fields."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of jobs to show (default: all)"),
		),
	)
	s.AddTool(listTool, handleListListings(apiURL, client))

	return s
}

// apiDo sends a request to the propscrape API and returns the status and body.
func apiDo(ctx context.Context, client *http.Client, method, url string, payload any) (int, []byte, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func handleScrapeListing(apiURL string, client *http.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		status, body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/scrape", models.ScrapeRequest{URL: url})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if status != http.StatusOK {
			var errResp models.ScrapeErrorResponse
			if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
				return mcp.NewToolResultError(fmt.Sprintf("scrape failed with status %d", status)), nil
			}
			msg := errResp.Error
			if errResp.Details != "" {
				msg += " " + errResp.Details
			}
			if errResp.Code != "" {
				msg = fmt.Sprintf("[%s] %s", errResp.Code, msg)
			}
			return mcp.NewToolResultError(msg), nil
		}

		var resp models.ScrapeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		result := resp.Message
		if resp.ID != 0 {
			result += fmt.Sprintf("\nJob: %d", resp.ID)
		}
		return mcp.NewToolResultText(result), nil
	}
}

func handleListListings(apiURL string, client *http.Client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 0)

		status, body, err := apiDo(ctx, client, http.MethodGet, apiURL+"/properties", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if status != http.StatusOK {
			var errResp models.ListErrorResponse
			if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
				return mcp.NewToolResultError(fmt.Sprintf("list failed with status %d", status)), nil
			}
			return mcp.NewToolResultError(strings.TrimSpace(errResp.Message + " " + errResp.Error)), nil
		}

		var jobs []models.ScrapeJob
		if err := json.Unmarshal(body, &jobs); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		total := len(jobs)
		if limit > 0 && limit < total {
			jobs = jobs[:limit]
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Found %d jobs:\n\n", total))
		for _, j := range jobs {
			sb.WriteString(fmt.Sprintf("--- [%d] %s (%s) ---\n", j.ID, j.URL, j.Status))
			if j.Status == models.StatusCompleted {
				sb.WriteString(fmt.Sprintf("Title: %s\nLocation: %s\nPrice: %s\nImage: %s\n",
					deref(j.Title), deref(j.Location), deref(j.Price), deref(j.PictureURL)))
			}
			sb.WriteString("\n")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
