package parser

import "strings"

// cssProperties is the denylist of property names worth surfacing:
// legacy layout properties, vendor-prefixed properties the dataset
// tracks under their written name, and recent additions that may not
// have reached Baseline yet. Everyday properties (display, color,
// margin) stay off the list so plain stylesheets produce no noise.
var cssProperties = map[string]string{
	"float":                       "css.properties.float",
	"clear":                       "css.properties.clear",
	"zoom":                        "css.properties.zoom",
	"user-select":                 "css.properties.user-select",
	"container":                   "css.properties.container",
	"container-type":              "css.properties.container-type",
	"container-name":              "css.properties.container-name",
	"aspect-ratio":                "css.properties.aspect-ratio",
	"appearance":                  "css.properties.appearance",
	"accent-color":                "css.properties.accent-color",
	"backdrop-filter":             "css.properties.backdrop-filter",
	"content-visibility":          "css.properties.content-visibility",
	"scrollbar-gutter":            "css.properties.scrollbar-gutter",
	"scrollbar-width":             "css.properties.scrollbar-width",
	"scrollbar-color":             "css.properties.scrollbar-color",
	"overflow-anchor":             "css.properties.overflow-anchor",
	"overscroll-behavior":         "css.properties.overscroll-behavior",
	"text-wrap":                   "css.properties.text-wrap",
	"line-clamp":                  "css.properties.line-clamp",
	"mask":                        "css.properties.mask",
	"mask-image":                  "css.properties.mask-image",
	"clip-path":                   "css.properties.clip-path",
	"mix-blend-mode":              "css.properties.mix-blend-mode",
	"view-transition-name":        "css.properties.view-transition-name",
	"anchor-name":                 "css.properties.anchor-name",
	"position-anchor":             "css.properties.position-anchor",
	"position-try":                "css.properties.position-try",
	"text-box-trim":               "css.properties.text-box-trim",
	"field-sizing":                "css.properties.field-sizing",
	"initial-letter":              "css.properties.initial-letter",
	"hanging-punctuation":         "css.properties.hanging-punctuation",
	"forced-color-adjust":         "css.properties.forced-color-adjust",
	"animation-timeline":          "css.properties.animation-timeline",
	"scroll-timeline":             "css.properties.scroll-timeline",
	"view-timeline":               "css.properties.view-timeline",
	"offset-path":                 "css.properties.offset-path",
	"paint-order":                 "css.properties.paint-order",
	"white-space-collapse":        "css.properties.white-space-collapse",
	"text-spacing-trim":           "css.properties.text-spacing-trim",
	"interpolate-size":            "css.properties.interpolate-size",
	"-webkit-line-clamp":          "css.properties.-webkit-line-clamp",
	"-webkit-box-orient":          "css.properties.-webkit-box-orient",
	"-webkit-text-fill-color":     "css.properties.-webkit-text-fill-color",
	"-webkit-text-stroke":         "css.properties.-webkit-text-stroke",
	"-webkit-tap-highlight-color": "css.properties.-webkit-tap-highlight-color",
	"-webkit-font-smoothing":      "css.properties.-webkit-font-smoothing",
	"-moz-osx-font-smoothing":     "css.properties.-moz-osx-font-smoothing",
	"-webkit-overflow-scrolling":  "css.properties.-webkit-overflow-scrolling",
	"-webkit-user-drag":           "css.properties.-webkit-user-drag",
	"-ms-overflow-style":          "css.properties.-ms-overflow-style",
}

var vendorPrefixes = []string{"-webkit-", "-moz-", "-ms-", "-o-"}

// stripVendorPrefix returns name without its vendor prefix and whether
// one was present.
func stripVendorPrefix(name string) (string, bool) {
	for _, p := range vendorPrefixes {
		if strings.HasPrefix(name, p) {
			return name[len(p):], true
		}
	}
	return name, false
}

// jsGlobals maps bare global identifiers to feature ids. Matched when
// the identifier is the callee of a call expression.
var jsGlobals = map[string]string{
	"fetch":                 "api.fetch",
	"structuredClone":       "api.structuredClone",
	"queueMicrotask":        "api.queueMicrotask",
	"createImageBitmap":     "api.createImageBitmap",
	"reportError":           "api.reportError",
	"requestAnimationFrame": "api.Window.requestAnimationFrame",
	"requestIdleCallback":   "api.Window.requestIdleCallback",
	"showOpenFilePicker":    "api.Window.showOpenFilePicker",
	"showSaveFilePicker":    "api.Window.showSaveFilePicker",
	"showDirectoryPicker":   "api.Window.showDirectoryPicker",
}

// jsConstructors maps identifiers used with `new` to feature ids.
var jsConstructors = map[string]string{
	"IntersectionObserver": "api.IntersectionObserver",
	"ResizeObserver":       "api.ResizeObserver",
	"MutationObserver":     "api.MutationObserver",
	"BroadcastChannel":     "api.BroadcastChannel",
	"AbortController":      "api.AbortController",
	"WebSocket":            "api.WebSocket",
	"Worker":               "api.Worker",
	"SharedWorker":         "api.SharedWorker",
	"EventSource":          "api.EventSource",
	"URLPattern":           "api.URLPattern",
	"OffscreenCanvas":      "api.OffscreenCanvas",
	"CompressionStream":    "api.CompressionStream",
	"DecompressionStream":  "api.DecompressionStream",
}

// jsMemberPaths maps dotted member paths, rooted at a recognized
// global, to feature ids. Longest path wins; a leading window.,
// globalThis. or self. segment is stripped before lookup.
var jsMemberPaths = map[string]string{
	"navigator.clipboard":                 "api.Clipboard",
	"navigator.clipboard.writeText":       "api.Clipboard.writeText",
	"navigator.clipboard.readText":        "api.Clipboard.readText",
	"navigator.clipboard.write":           "api.Clipboard.write",
	"navigator.clipboard.read":            "api.Clipboard.read",
	"navigator.share":                     "api.Navigator.share",
	"navigator.sendBeacon":                "api.Navigator.sendBeacon",
	"navigator.serviceWorker":             "api.ServiceWorker",
	"navigator.storage":                   "api.StorageManager",
	"navigator.wakeLock":                  "api.WakeLock",
	"navigator.bluetooth":                 "api.Bluetooth",
	"navigator.usb":                       "api.USB",
	"navigator.gpu":                       "api.GPU",
	"navigator.mediaDevices":              "api.MediaDevices",
	"navigator.mediaDevices.getUserMedia": "api.MediaDevices.getUserMedia",
	"navigator.mediaDevices.getDisplayMedia": "api.MediaDevices.getDisplayMedia",
	"navigator.userAgentData":                "api.Navigator.userAgentData",
	"document.startViewTransition":           "api.Document.startViewTransition",
	"document.caretPositionFromPoint":        "api.Document.caretPositionFromPoint",
	"indexedDB":                              "api.IDBFactory",
	"indexedDB.open":                         "api.IDBFactory.open",
	"localStorage":                           "api.Window.localStorage",
	"crypto.randomUUID":                      "api.Crypto.randomUUID",
	"scheduler.postTask":                     "api.Scheduler.postTask",
	"Object.groupBy":                         "javascript.builtins.Object.groupBy",
	"Object.hasOwn":                          "javascript.builtins.Object.hasOwn",
	"Map.groupBy":                            "javascript.builtins.Map.groupBy",
	"Promise.any":                            "javascript.builtins.Promise.any",
	"Promise.allSettled":                     "javascript.builtins.Promise.allSettled",
	"Promise.withResolvers":                  "javascript.builtins.Promise.withResolvers",
	"Promise.try":                            "javascript.builtins.Promise.try",
	"Array.fromAsync":                        "javascript.builtins.Array.fromAsync",
}

// arrayMethods and stringMethods map instance method names to builtin
// feature ids. Methods present in both (at, includes) are resolved by
// the detector's Strategy.
var arrayMethods = map[string]string{
	"at":            "javascript.builtins.Array.at",
	"flat":          "javascript.builtins.Array.flat",
	"flatMap":       "javascript.builtins.Array.flatMap",
	"findLast":      "javascript.builtins.Array.findLast",
	"findLastIndex": "javascript.builtins.Array.findLastIndex",
	"copyWithin":    "javascript.builtins.Array.copyWithin",
	"includes":      "javascript.builtins.Array.includes",
	"toSorted":      "javascript.builtins.Array.toSorted",
	"toReversed":    "javascript.builtins.Array.toReversed",
	"toSpliced":     "javascript.builtins.Array.toSpliced",
	"with":          "javascript.builtins.Array.with",
}

var stringMethods = map[string]string{
	"at":            "javascript.builtins.String.at",
	"includes":      "javascript.builtins.String.includes",
	"padStart":      "javascript.builtins.String.padStart",
	"padEnd":        "javascript.builtins.String.padEnd",
	"trimStart":     "javascript.builtins.String.trimStart",
	"trimEnd":       "javascript.builtins.String.trimEnd",
	"replaceAll":    "javascript.builtins.String.replaceAll",
	"matchAll":      "javascript.builtins.String.matchAll",
	"codePointAt":   "javascript.builtins.String.codePointAt",
	"normalize":     "javascript.builtins.String.normalize",
	"localeCompare": "javascript.builtins.String.localeCompare",
	"isWellFormed":  "javascript.builtins.String.isWellFormed",
	"toWellFormed":  "javascript.builtins.String.toWellFormed",
}

// htmlElements is the allowlist of tag names worth surfacing.
var htmlElements = map[string]string{
	"dialog":          "html.elements.dialog",
	"details":         "html.elements.details",
	"template":        "html.elements.template",
	"slot":            "html.elements.slot",
	"search":          "html.elements.search",
	"portal":          "html.elements.portal",
	"fencedframe":     "html.elements.fencedframe",
	"selectedcontent": "html.elements.selectedcontent",
	"marquee":         "html.elements.marquee",
	"model":           "html.elements.model",
	"picture":         "html.elements.picture",
}

// htmlAttributes is the allowlist of attribute names worth surfacing.
var htmlAttributes = map[string]string{
	"popover":       "html.global_attributes.popover",
	"inert":         "html.global_attributes.inert",
	"enterkeyhint":  "html.global_attributes.enterkeyhint",
	"fetchpriority": "html.global_attributes.fetchpriority",
	"anchor":        "html.global_attributes.anchor",
}
