package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Hook called outside component scope",
		Detail:   "UseMediaQuery and the other Use* hooks must be called during a component's render, where an owner is active.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Hook order changed between renders",
		Detail:   "Hooks must be called in the same order on every render. Don't call hooks inside conditionals or loops whose shape changes between renders.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Owner disposed",
		Detail:   "The component owner has been disposed. This usually means you're reading reactive state from a component that has been unmounted.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E003",
	},
	"E004": {
		Category: CategoryRuntime,
		Message:  "Render loop exceeded budget",
		Detail:   "Effects kept scheduling re-renders without settling. Check for an effect that writes state it also reads.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E004",
	},
	"E005": {
		Category: CategoryRuntime,
		Message:  "Session not found",
		Detail:   "The session ID is invalid or the session has expired.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E005",
	},

	// ============================================
	// Query Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryQuery,
		Message:  "Unexpected token in media query",
		Detail:   "The media query contains a token the parser did not expect at this position.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E020",
	},
	"E021": {
		Category: CategoryQuery,
		Message:  "Unknown media feature",
		Detail:   "The feature name is not recognized. Supported features include width, height, orientation, resolution, aspect-ratio, prefers-color-scheme, prefers-reduced-motion, hover and pointer.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E021",
	},
	"E022": {
		Category: CategoryQuery,
		Message:  "Unknown media type",
		Detail:   "Only the media types all, screen and print are recognized.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E022",
	},
	"E023": {
		Category: CategoryQuery,
		Message:  "Invalid value for media feature",
		Detail:   "The value doesn't match what this feature accepts. Dimensions take a length like 768px, discrete features take a keyword like portrait or dark.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E023",
	},
	"E024": {
		Category: CategoryQuery,
		Message:  "Unclosed parenthesis",
		Detail:   "A feature expression was opened with '(' but never closed.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E024",
	},
	"E025": {
		Category: CategoryQuery,
		Message:  "Malformed range expression",
		Detail:   "Range syntax is (400px < width <= 900px) or (width >= 400px). Both comparisons must point the same direction.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E025",
	},
	"E026": {
		Category: CategoryQuery,
		Message:  "Missing value for media feature",
		Detail:   "A ':' must be followed by a value, e.g. (min-width: 768px).",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E026",
	},
	"E027": {
		Category: CategoryQuery,
		Message:  "Empty media query",
		Detail:   "The query string contains no conditions.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E027",
	},
	"E028": {
		Category: CategoryQuery,
		Message:  "Unknown length unit",
		Detail:   "Supported length units are px, em, rem, vw and vh. Resolutions take dpi, dppx or x.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E028",
	},

	// ============================================
	// Protocol Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryProtocol,
		Message:  "WebSocket connection failed",
		Detail:   "Unable to establish WebSocket connection to the server.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E060",
	},
	"E061": {
		Category: CategoryProtocol,
		Message:  "Invalid frame format",
		Detail:   "The received frame could not be decoded. The protocol version may be mismatched.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E061",
	},
	"E062": {
		Category: CategoryProtocol,
		Message:  "Unknown event type",
		Detail:   "The media event type is not recognized by the server.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E062",
	},
	"E063": {
		Category: CategoryProtocol,
		Message:  "Unknown frame type",
		Detail:   "The frame type byte is not recognized.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E063",
	},
	"E064": {
		Category: CategoryProtocol,
		Message:  "Protocol version mismatch",
		Detail:   "The client and server are using incompatible protocol versions.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E064",
	},
	"E065": {
		Category: CategoryProtocol,
		Message:  "Frame sequence error",
		Detail:   "Frames were received out of order. This may indicate network issues.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E065",
	},
	"E066": {
		Category: CategoryProtocol,
		Message:  "Handshake failed",
		Detail:   "The WebSocket handshake with the server failed.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E066",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file is malformed.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A required configuration value is not set.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "The configured port number is invalid or already in use.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid session limits",
		Detail:   "Session limits must be positive and the resume window must not exceed the session TTL.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E123",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Query argument required",
		Detail:   "This command needs a media query expression as its argument.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Invalid viewport dimensions",
		Detail:   "Viewport dimensions must be positive integers, e.g. --width 1024 --height 768.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Server failed to start",
		Detail:   "The HTTP server could not bind or serve. Check the address and port.",
		DocURL:   "https://matchmedia-go.dev/docs/errors/E142",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
