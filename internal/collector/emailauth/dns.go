package emailauth

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/net/dns/dnsmessage"
)

// dkimSelectors is the fixed sweep of common DKIM selector names probed
// against "<selector>._domainkey.<target>" (§4.6).
var dkimSelectors = []string{
	"default", "selector1", "selector2", "google", "k1", "k2", "k3",
	"mail", "smtp", "dkim", "s1", "s2", "mandrill", "mx", "email",
	"sig1", "zendesk1", "mailgun",
}

// mailSubdomains is the fixed ~10-entry subdomain pass used when the
// optional mail-subdomain sweep is enabled (§4.6).
var mailSubdomains = []string{
	"mail", "smtp", "mx", "mx1", "mx2", "email", "webmail", "imap",
	"pop", "autodiscover",
}

// txtRecord returns the first TXT record string starting with prefix at
// name, or "" if none matched.
func txtRecord(ctx context.Context, resolver *net.Resolver, name, prefix string) (string, error) {
	records, err := resolver.LookupTXT(ctx, name)
	if err != nil {
		return "", err
	}
	for _, r := range records {
		if strings.HasPrefix(strings.ToLower(r), strings.ToLower(prefix)) {
			return r, nil
		}
	}
	return "", nil
}

// lookupSPF fetches the target's SPF TXT record (§4.6).
func lookupSPF(ctx context.Context, resolver *net.Resolver, target string) (string, error) {
	return txtRecord(ctx, resolver, target, "v=spf1")
}

// lookupDMARC fetches the DMARC policy TXT record at _dmarc.<target>.
func lookupDMARC(ctx context.Context, resolver *net.Resolver, target string) (string, error) {
	return txtRecord(ctx, resolver, "_dmarc."+target, "v=dmarc1")
}

// lookupMX returns the target's MX hosts sorted by preference.
func lookupMX(ctx context.Context, resolver *net.Resolver, target string) ([]*net.MX, error) {
	return resolver.LookupMX(ctx, target)
}

// lookupDKIM probes every selector in dkimSelectors, returning the
// selectors that resolve a DKIM TXT record.
func lookupDKIM(ctx context.Context, resolver *net.Resolver, target string) map[string]string {
	found := map[string]string{}
	for _, selector := range dkimSelectors {
		name := fmt.Sprintf("%s._domainkey.%s", selector, target)
		rec, err := txtRecord(ctx, resolver, name, "v=dkim1")
		if err == nil && rec != "" {
			found[selector] = rec
		}
	}
	return found
}

// lookupBIMI fetches the BIMI TXT record at default._bimi.<target>.
func lookupBIMI(ctx context.Context, resolver *net.Resolver, target string) (string, error) {
	return txtRecord(ctx, resolver, "default._bimi."+target, "v=bimi1")
}

// lookupMTASTS fetches the MTA-STS TXT record at _mta-sts.<target>.
func lookupMTASTS(ctx context.Context, resolver *net.Resolver, target string) (string, error) {
	return txtRecord(ctx, resolver, "_mta-sts."+target, "v=stsv1")
}

// lookupPTR resolves the reverse DNS name for every A record behind
// host, used to sanity-check MX PTR configuration (§4.6).
func lookupPTR(ctx context.Context, resolver *net.Resolver, host string) ([]string, error) {
	addrs, err := resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, addr := range addrs {
		ptrs, err := resolver.LookupAddr(ctx, addr)
		if err != nil {
			continue
		}
		names = append(names, ptrs...)
	}
	return names, nil
}

// resolverAddr is the nameserver raw TLSA/DNSKEY queries are sent to.
// net.Resolver doesn't expose either record type, and parsing
// /etc/resolv.conf for the system's configured server is unreliable
// across platforms, so these best-effort optional checks go straight
// to a public resolver.
func resolverAddr() string {
	return "8.8.8.8:53"
}

// rawQuery issues a minimal DNS query for name/qtype over UDP against a
// public resolver, used for the record types net.Resolver doesn't
// expose (TLSA, DNSKEY). This is a deliberately narrow implementation:
// no ecosystem pure-Go DNS client library was present anywhere in the
// retrieved reference repos, so it's built on golang.org/x/net's wire
// format package (golang.org/x/net is already a direct dependency of
// this module) rather than introducing a new one.
func rawQuery(ctx context.Context, name string, qtype dnsmessage.Type) ([]dnsmessage.Resource, error) {
	conn, err := net.Dial("udp", resolverAddr())
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	}

	fqdn, err := dnsmessage.NewName(ensureDot(name))
	if err != nil {
		return nil, err
	}

	msg := dnsmessage.Message{
		Header: dnsmessage.Header{ID: 1, RecursionDesired: true},
		Questions: []dnsmessage.Question{{
			Name:  fqdn,
			Type:  qtype,
			Class: dnsmessage.ClassINET,
		}},
	}
	packed, err := msg.Pack()
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(packed); err != nil {
		return nil, err
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}

	var resp dnsmessage.Message
	if err := resp.Unpack(buf[:n]); err != nil {
		return nil, err
	}
	return resp.Answers, nil
}

func ensureDot(name string) string {
	if strings.HasSuffix(name, ".") {
		return name
	}
	return name + "."
}

// dnsmessage only defines constants for the RR types its message-body
// parser knows how to decode structurally; TLSA and DNSKEY fall back to
// UnknownResource, which is all we need since we only check presence.
const (
	typeTLSA   dnsmessage.Type = 52
	typeDNSKEY dnsmessage.Type = 48
)

// lookupTLSA queries the TLSA record for _25._tcp.<mxHost> (DANE).
func lookupTLSA(ctx context.Context, mxHost string) (bool, error) {
	name := fmt.Sprintf("_25._tcp.%s", mxHost)
	answers, err := rawQuery(ctx, name, typeTLSA)
	if err != nil {
		return false, err
	}
	return len(answers) > 0, nil
}

// lookupDNSKEY queries the DNSKEY record at target to approximate
// whether DNSSEC is enabled.
func lookupDNSKEY(ctx context.Context, target string) (bool, error) {
	answers, err := rawQuery(ctx, target, typeDNSKEY)
	if err != nil {
		return false, err
	}
	return len(answers) > 0, nil
}
