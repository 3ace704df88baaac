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
)

// scrapeRequest mirrors the Harvest API request model.
type scrapeRequest struct {
	URL    string       `json:"url"`
	Config scrapeConfig `json:"config"`
}

type scrapeConfig struct {
	ExtractText    bool   `json:"extract_text"`
	ExtractImages  bool   `json:"extract_images"`
	ExtractLinks   bool   `json:"extract_links"`
	DownloadImages bool   `json:"download_images"`
	BypassAntiBot  bool   `json:"bypass_anti_bot"`
	StealthMode    bool   `json:"stealth_mode"`
	UseProxy       bool   `json:"use_proxy"`
	ProxyURL       string `json:"proxy_url,omitempty"`
	WaitTimeMs     int    `json:"wait_time_ms,omitempty"`
	ScrollToBottom bool   `json:"scroll_to_bottom"`
	HumanBehavior  bool   `json:"human_behavior"`
}

// scrapeResponse mirrors the Harvest API response model.
type scrapeResponse struct {
	Success bool `json:"success"`
	Content *struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Description string `json:"description"`
		TextContent string `json:"text_content"`
		CleanedText string `json:"cleaned_text"`
		Headings    []struct {
			Level int    `json:"level"`
			Text  string `json:"text"`
		} `json:"headings"`
		Images []struct {
			Src string `json:"src"`
			Alt string `json:"alt"`
		} `json:"images"`
		Links []struct {
			Href string `json:"href"`
			Text string `json:"text"`
			Type string `json:"type"`
		} `json:"links"`
		ContactInfo *struct {
			Emails []string `json:"emails"`
			Phones []string `json:"phones"`
		} `json:"contact_info"`
		CaptchaDetected bool `json:"captcha_detected"`
	} `json:"content"`
	Degraded    []string `json:"degraded,omitempty"`
	CacheStatus string   `json:"cache_status,omitempty"`
	Timing      *struct {
		TotalMs int64 `json:"total_ms"`
	} `json:"timing"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// capabilitiesResponse mirrors the Harvest capabilities endpoint.
type capabilitiesResponse struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Extractors []string `json:"extractors"`
	Behaviors  []string `json:"behaviors"`
	Proxies    bool     `json:"proxies"`
}

func main() {
	apiURL := os.Getenv("HARVEST_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("HARVEST_API_KEY")

	s := server.NewMCPServer(
		"harvest",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapeURLTool := mcp.NewTool("scrape_url",
		mcp.WithDescription("Scrape a web page with a stealth headless browser and return extracted content: text, headings, images, links and contact info. Renders JavaScript-heavy pages and can evade basic bot detection."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scrape"),
		),
		mcp.WithBoolean("stealth_mode",
			mcp.Description("Apply anti-detection measures to the browser session (default true)"),
		),
		mcp.WithBoolean("extract_text",
			mcp.Description("Extract textual content: paragraphs, headings, lists, tables (default true)"),
		),
		mcp.WithBoolean("extract_images",
			mcp.Description("Extract image records from the page (default true)"),
		),
		mcp.WithBoolean("extract_links",
			mcp.Description("Extract and classify hyperlinks (default true)"),
		),
		mcp.WithBoolean("scroll_to_bottom",
			mcp.Description("Scroll the page to the bottom before extraction to trigger lazy loading"),
		),
		mcp.WithBoolean("human_behavior",
			mcp.Description("Simulate human-like mouse movement and scrolling before extraction"),
		),
		mcp.WithBoolean("use_proxy",
			mcp.Description("Route the browser session through the configured proxy pool"),
		),
		mcp.WithNumber("wait_time_ms",
			mcp.Description("Extra time in milliseconds to wait after navigation before extracting"),
		),
	)
	s.AddTool(scrapeURLTool, handleScrapeURL(apiURL, apiKey))

	capabilitiesTool := mcp.NewTool("capabilities",
		mcp.WithDescription("Report the Harvest service version and the feature set it supports."),
	)
	s.AddTool(capabilitiesTool, handleCapabilities(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScrapeURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{
			URL: url,
			Config: scrapeConfig{
				StealthMode:    request.GetBool("stealth_mode", true),
				BypassAntiBot:  request.GetBool("stealth_mode", true),
				ExtractText:    request.GetBool("extract_text", true),
				ExtractImages:  request.GetBool("extract_images", true),
				ExtractLinks:   request.GetBool("extract_links", true),
				ScrollToBottom: request.GetBool("scroll_to_bottom", false),
				HumanBehavior:  request.GetBool("human_behavior", false),
				UseProxy:       request.GetBool("use_proxy", false),
				WaitTimeMs:     request.GetInt("wait_time_ms", 0),
			},
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/scrape", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !scrapeResp.Success || scrapeResp.Content == nil {
			errMsg := "scrape failed"
			if scrapeResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", scrapeResp.Error.Code, scrapeResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		return mcp.NewToolResultText(formatContent(&scrapeResp)), nil
	}
}

func handleCapabilities(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"/api/v1/capabilities", nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var caps capabilitiesResponse
		if err := json.Unmarshal(respBody, &caps); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Harvest %s\nExtractors: %s\nBehaviors: %s\nProxy rotation: %t",
			caps.Version, strings.Join(caps.Extractors, ", "),
			strings.Join(caps.Behaviors, ", "), caps.Proxies)), nil
	}
}

// formatContent renders a successful scrape into readable text for the MCP client.
func formatContent(resp *scrapeResponse) string {
	c := resp.Content

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title: %s\nSource: %s\n", c.Title, c.URL))
	if c.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", c.Description))
	}
	if c.CaptchaDetected {
		sb.WriteString("Note: a CAPTCHA challenge was detected on this page\n")
	}
	body := c.CleanedText
	if body == "" {
		body = c.TextContent
	}
	sb.WriteString("\n")
	sb.WriteString(body)

	if len(c.Links) > 0 {
		sb.WriteString("\n\n--- Links ---\n")
		for _, l := range c.Links {
			sb.WriteString(fmt.Sprintf("[%s] %s (%s)\n", l.Type, l.Href, l.Text))
		}
	}
	if len(c.Images) > 0 {
		sb.WriteString("\n--- Images ---\n")
		for _, img := range c.Images {
			sb.WriteString(fmt.Sprintf("%s (%s)\n", img.Src, img.Alt))
		}
	}
	if c.ContactInfo != nil && (len(c.ContactInfo.Emails) > 0 || len(c.ContactInfo.Phones) > 0) {
		sb.WriteString("\n--- Contacts ---\n")
		for _, e := range c.ContactInfo.Emails {
			sb.WriteString("email: " + e + "\n")
		}
		for _, p := range c.ContactInfo.Phones {
			sb.WriteString("phone: " + p + "\n")
		}
	}
	if len(resp.Degraded) > 0 {
		sb.WriteString(fmt.Sprintf("\n(partial extraction; degraded fields: %s)\n", strings.Join(resp.Degraded, ", ")))
	}

	return sb.String()
}
