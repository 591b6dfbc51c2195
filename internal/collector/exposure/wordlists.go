package exposure

import "github.com/sentrywatch/threatwatch/internal/models"

// dorkTemplates expands against the target domain to build Google/Bing
// dork queries surfaced as an informational finding before any network
// call is made (§4.5 step 1).
var dorkTemplates = []string{
	`site:%s filetype:pdf`,
	`site:%s filetype:doc`,
	`site:%s filetype:docx`,
	`site:%s filetype:xls`,
	`site:%s filetype:xlsx`,
	`site:%s filetype:ppt`,
	`site:%s filetype:txt`,
	`site:%s filetype:sql`,
	`site:%s filetype:log`,
	`site:%s filetype:env`,
	`site:%s filetype:bak`,
	`site:%s filetype:config`,
	`site:%s filetype:conf`,
	`site:%s filetype:ini`,
	`site:%s filetype:yml`,
	`site:%s filetype:yaml`,
	`site:%s filetype:json`,
	`site:%s filetype:xml`,
	`site:%s inurl:admin`,
	`site:%s inurl:login`,
	`site:%s inurl:wp-admin`,
	`site:%s inurl:phpmyadmin`,
	`site:%s inurl:config`,
	`site:%s inurl:backup`,
	`site:%s inurl:.git`,
	`site:%s inurl:.svn`,
	`site:%s inurl:.env`,
	`site:%s intitle:"index of"`,
	`site:%s intitle:"index of" "backup"`,
	`site:%s intitle:"index of" "password"`,
	`site:%s "password" filetype:log`,
	`site:%s "api_key"`,
	`site:%s "secret_key"`,
	`site:%s "aws_access_key_id"`,
	`site:%s "BEGIN RSA PRIVATE KEY"`,
	`site:%s "BEGIN PRIVATE KEY"`,
	`site:%s ext:sql "insert into"`,
	`site:%s ext:log "error"`,
	`site:%s inurl:swagger`,
	`site:%s inurl:actuator`,
	`site:%s inurl:graphql`,
	`site:%s inurl:jenkins`,
	`site:%s inurl:gitlab`,
	`site:%s inurl:jira`,
	`site:%s inurl:confluence`,
	`site:%s inurl:grafana`,
	`site:%s inurl:kibana`,
	`site:%s inurl:s3.amazonaws.com`,
	`site:%s inurl:blob.core.windows.net`,
	`site:%s "Index of /.aws"`,
	`site:%s "Index of /.ssh"`,
	`site:%s inurl:console`,
	`site:%s inurl:debug`,
	`site:%s inurl:test`,
	`site:%s inurl:staging`,
	`site:%s inurl:dev`,
	`site:%s inurl:internal`,
	`site:%s "powered by" intext:error`,
	`site:%s "SQL syntax" OR "mysql_fetch"`,
	`site:%s "Warning: mysqli"`,
	`site:%s "ORA-00933"`,
	`site:%s "Fatal error" intext:"on line"`,
	`site:%s inurl:phpinfo`,
	`site:%s "X-Powered-By"`,
	`site:%s inurl:wp-content/uploads`,
	`site:%s inurl:wp-json`,
	`site:%s inurl:xmlrpc.php`,
	`site:%s inurl:.well-known/security.txt`,
	`site:%s inurl:robots.txt`,
	`site:%s inurl:sitemap.xml`,
	`site:%s "Index of /backup"`,
	`site:%s "Index of /logs"`,
	`site:%s "Index of /db"`,
	`site:%s "Index of /private"`,
	`site:%s inurl:cgi-bin`,
	`site:%s filetype:pem`,
	`site:%s filetype:ppk`,
	`site:%s filetype:key`,
	`site:%s "Index of /.git"`,
}

// subdomainPrefixes is probed against the target's apex domain in
// parallel DNS resolutions (§4.5 step 2).
var subdomainPrefixes = []string{
	"www", "mail", "remote", "blog", "webmail", "server", "ns1", "ns2",
	"smtp", "secure", "vpn", "m", "shop", "ftp", "mail2", "test", "portal",
	"dns", "api", "dev", "staging", "app", "beta", "admin", "demo", "cdn",
	"static", "assets", "img", "images", "cpanel", "whm", "autodiscover",
	"autoconfig", "mobile", "mx", "pop", "pop3", "imap", "imap4", "ns3",
	"ns4", "direct", "dns1", "dns2", "proxy", "owa", "exchange", "support",
	"docs", "wiki", "git", "gitlab", "jenkins", "jira", "confluence",
	"grafana", "kibana", "status", "monitor", "monitoring", "metrics",
	"prometheus", "sentry", "sso", "auth", "login", "id", "account",
	"accounts", "billing", "payments", "pay", "store", "cart", "checkout",
	"media", "video", "cdn1", "cdn2", "files", "upload", "uploads",
	"download", "downloads", "backup", "backups", "db", "database",
	"redis", "cache", "internal", "intranet", "corp", "office", "vpn1",
	"vpn2", "gateway", "gw", "router", "firewall", "edge", "lb",
	"loadbalancer", "k8s", "kube", "registry", "artifactory",
}

// endpointPaths is probed under both schemes; severity per path comes
// from endpointSeverity (§4.5 step 3).
var endpointPaths = []string{
	"/", "/robots.txt", "/sitemap.xml", "/.well-known/security.txt",
	"/admin", "/login", "/api", "/api/v1", "/api/v2", "/graphql",
	"/swagger", "/swagger-ui.html", "/actuator", "/actuator/health",
	"/actuator/env", "/actuator/beans", "/debug", "/debug/pprof",
	"/console", "/status", "/health", "/healthz", "/metrics", "/version",
	"/phpinfo.php", "/info.php", "/test.php", "/server-status",
	"/server-info", "/.htaccess", "/.htpasswd", "/web.config",
	"/crossdomain.xml", "/clientaccesspolicy.xml", "/wp-login.php",
	"/wp-admin", "/wp-json", "/xmlrpc.php", "/jenkins", "/gitlab",
	"/jira", "/confluence", "/grafana", "/kibana", "/elasticsearch",
	"/solr", "/manager/html", "/jmx-console", "/invoker/JMXInvokerServlet",
	"/cgi-bin/test.cgi", "/owa", "/ecp",
}

// endpointSeverity classifies an endpoint path into the severity its
// response implies if live; unlisted paths default to info.
func endpointSeverity(path string) models.Severity {
	switch path {
	case "/.git/config", "/.svn/entries", "/.hg/requires":
		return models.SeverityCritical
	case "/phpinfo.php", "/info.php", "/actuator/env", "/actuator/beans", "/jmx-console", "/invoker/JMXInvokerServlet":
		return models.SeverityHigh
	case "/admin", "/wp-admin", "/manager/html", "/jenkins", "/gitlab", "/jira", "/confluence", "/grafana", "/kibana", "/console", "/owa", "/ecp":
		return models.SeverityMedium
	case "/robots.txt", "/sitemap.xml", "/.well-known/security.txt", "/", "/version", "/status", "/health", "/healthz":
		return models.SeverityInfo
	default:
		return models.SeverityInfo
	}
}

// sensitiveFilePaths is probed for known-risky file exposure (§4.5 step 4).
var sensitiveFilePaths = []string{
	"/.env", "/.env.local", "/.env.production", "/.env.bak", "/config.php.bak",
	"/wp-config.php.bak", "/database.sql", "/backup.sql", "/dump.sql",
	"/db.sql", "/site.sql", "/users.sql", "/app.log", "/error.log",
	"/access.log", "/debug.log", "/laravel.log", "/npm-debug.log",
	"/yarn-error.log", "/composer.lock", "/package-lock.json",
	"/id_rsa", "/id_rsa.pub", "/id_dsa", "/server.key", "/server.pem",
	"/privatekey.key", "/ssl.key", "/config.yml.bak", "/settings.py.bak",
	"/application.properties.bak", "/credentials.json", "/secrets.yml",
	"/secrets.json", "/.npmrc", "/.pypirc", "/.netrc", "/.dockercfg",
	"/docker-compose.yml.bak", "/Dockerfile.bak", "/.bash_history",
}

// sensitiveExtensions maps a file extension found via sensitiveFilePaths
// (or any crawled link) to the severity its exposure implies.
var sensitiveExtensions = map[string]models.Severity{
	".env": models.SeverityCritical, ".key": models.SeverityCritical,
	".pem": models.SeverityCritical, ".sql": models.SeverityHigh,
	".bak": models.SeverityHigh, ".log": models.SeverityMedium,
	".config": models.SeverityHigh, ".yml": models.SeverityMedium,
	".yaml": models.SeverityMedium, ".json": models.SeverityLow,
	".lock": models.SeverityInfo,
}

// vcsMarkers are VCS metadata files whose exposure dumps the whole
// source tree (§4.5 step 5, always severity critical / score 90).
var vcsMarkers = []string{
	"/.git/config", "/.git/HEAD", "/.svn/entries", "/.svn/wc.db",
	"/.hg/requires", "/.hg/hgrc", "/.bzr/branch-format", "/CVS/Root",
}

// adminPanelPaths is probed for login-protected or exposed admin
// surfaces (§4.5 step 6).
var adminPanelPaths = []string{
	"/admin", "/administrator", "/admin.php", "/admin/login",
	"/wp-admin", "/wp-login.php", "/user/login", "/cpanel",
	"/webmail", "/phpmyadmin", "/pma", "/adminer.php", "/manager/html",
	"/console", "/_admin", "/backend", "/controlpanel", "/portal/admin",
	"/system/admin", "/admincp", "/moderator", "/admin1", "/admin2",
}

// loginIndicators are body substrings that mark a page as a login form
// even on a 200 response.
var loginIndicators = []string{
	"type=\"password\"", "name=\"password\"", "forgot password",
	"sign in", "log in", "username or email",
}

// configFilePaths is probed for accidentally web-exposed config files
// (§4.5 step 7).
var configFilePaths = []string{
	"/config.php", "/config.json", "/config.yml", "/config.yaml",
	"/app.config", "/web.config", "/settings.php", "/settings.json",
	"/application.yml", "/application.properties", "/local.settings.json",
	"/appsettings.json", "/docker-compose.yml", "/.env.example",
}

// configMarkers are body substrings indicating a fetched path is a real
// config file leaking secrets, not a 404 page.
var configMarkers = []string{"password", "secret", "api_key", "host", "port"}
