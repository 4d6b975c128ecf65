package virtual_modules

import "sort"

// Prefix marks an import specifier as a platform module rather than a file on disk.
const Prefix = "fastly:"

// the sources only re-export what the engine already installed on globalThis,
// so they never contain import statements of their own
var table = map[string]string{
	"acl": `export const Acl = globalThis.Acl;`,
	"backend": `export const Backend = globalThis.Backend;
const allowDynamicBackends = Object.getOwnPropertyDescriptor(globalThis.fastly, 'allowDynamicBackends').set;
const setDefaultBackend = Object.getOwnPropertyDescriptor(globalThis.fastly, 'defaultBackend').set;
export const setDefaultDynamicBackendConfig = allowDynamicBackends;
export function enforceExplicitBackends(defaultBackend) {
  allowDynamicBackends.call(globalThis.fastly, false);
  if (defaultBackend) setDefaultBackend.call(globalThis.fastly, defaultBackend);
}`,
	"body":           `export const FastlyBody = globalThis.FastlyBody;`,
	"cache-override": `export const CacheOverride = globalThis.CacheOverride;`,
	"cache": `export const CacheEntry = globalThis.CacheEntry;
export const CacheState = globalThis.CacheState;
export const CoreCache = globalThis.CoreCache;
export const SimpleCache = globalThis.SimpleCache;
export const SimpleCacheEntry = globalThis.SimpleCacheEntry;
export const TransactionCacheEntry = globalThis.TransactionCacheEntry;`,
	"compute":      `export const { purgeSurrogateKey, vCpuTime } = globalThis.fastly;`,
	"config-store": `export const ConfigStore = globalThis.ConfigStore;`,
	"device":       `export const Device = globalThis.Device;`,
	"dictionary":   `export const Dictionary = globalThis.Dictionary;`,
	"edge-rate-limiter": `export const RateCounter = globalThis.RateCounter;
export const PenaltyBox = globalThis.PenaltyBox;
export const EdgeRateLimiter = globalThis.EdgeRateLimiter;`,
	"env": `export const env = globalThis.fastly.env.get;`,
	"experimental": `export const includeBytes = globalThis.fastly.includeBytes;
export const enableDebugLogging = globalThis.fastly.enableDebugLogging;
export const setBaseURL = Object.getOwnPropertyDescriptor(globalThis.fastly, 'baseURL').set;
export const setDefaultBackend = Object.getOwnPropertyDescriptor(globalThis.fastly, 'defaultBackend').set;
export const allowDynamicBackends = Object.getOwnPropertyDescriptor(globalThis.fastly, 'allowDynamicBackends').set;
export const sdkVersion = globalThis.fastly.sdkVersion;
export const mapAndLogError = (e) => globalThis.__fastlyMapAndLogError(e);
export const mapError = (e) => globalThis.__fastlyMapError(e);`,
	"fanout":          `export const createFanoutHandoff = globalThis.fastly.createFanoutHandoff;`,
	"geolocation":     `export const getGeolocationForIpAddress = globalThis.fastly.getGeolocationForIpAddress;`,
	"html-rewriter":   `export const HTMLRewritingStream = globalThis.HTMLRewritingStream;`,
	"image-optimizer": `export const optionsToQueryString = globalThis.fastly.imageOptimizerOptionsToQueryString;`,
	"kv-store":        `export const KVStore = globalThis.KVStore;`,
	"logger": `export const Logger = globalThis.Logger;
export const configureConsole = Object.getOwnPropertyDescriptor(globalThis.fastly, 'configureConsole').value;`,
	"secret-store": `export const SecretStore = globalThis.SecretStore;
export const SecretStoreEntry = globalThis.SecretStoreEntry;`,
	"security":  `export const inspect = globalThis.fastly.inspect;`,
	"shielding": `export const Shield = globalThis.Shield;`,
	"websocket": `export const createWebsocketHandoff = globalThis.fastly.createWebsocketHandoff;`,
}

// Resolve returns the synthesized source for a namespace such as "backend".
// The namespace must not carry the "fastly:" prefix.
func Resolve(namespace string) (string, bool) {
	src, ok := table[namespace]
	return src, ok
}

func Namespaces() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
