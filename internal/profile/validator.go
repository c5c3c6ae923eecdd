// Package profile decides whether a social profile document is complete.
//
// Evaluation is pure and total: no I/O, no panics, and any unexpected shape in
// the document fails the affected criterion instead of raising an error.
package profile

import (
	"profilecheck/pkg/domain"
	"profilecheck/pkg/jsonvalue"
)

// Criterion names one required part of a complete profile.
type Criterion string

const (
	CriterionName            Criterion = "name"
	CriterionDescription     Criterion = "description"
	CriterionImage           Criterion = "image"
	CriterionBackgroundImage Criterion = "backgroundImage"
	CriterionLinktree        Criterion = "linktree"
	CriterionTags            Criterion = "tags"
)

// Criteria lists every criterion in evaluation order.
var Criteria = []Criterion{
	CriterionName,
	CriterionDescription,
	CriterionImage,
	CriterionBackgroundImage,
	CriterionLinktree,
	CriterionTags,
}

// profileKey is the subtree under each account that holds the profile.
const profileKey = "profile"

// Report holds the outcome of each criterion for one account.
type Report struct {
	ProfileFound bool
	Results      map[Criterion]bool
}

// Passed reports whether every criterion holds.
func (r Report) Passed() bool {
	if !r.ProfileFound {
		return false
	}
	for _, c := range Criteria {
		if !r.Results[c] {
			return false
		}
	}
	return true
}

// Missing returns the failed criteria in evaluation order.
func (r Report) Missing() []Criterion {
	missing := make([]Criterion, 0, len(Criteria))
	for _, c := range Criteria {
		if !r.Results[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

// Evaluate reports whether doc[account]["profile"] is a complete profile.
func Evaluate(doc jsonvalue.Value, account domain.AccountID) bool {
	return Check(doc, account).Passed()
}

// Check evaluates every criterion against doc[account]["profile"].
func Check(doc jsonvalue.Value, account domain.AccountID) Report {
	report := Report{Results: make(map[Criterion]bool, len(Criteria))}

	node, ok := jsonvalue.Lookup(doc, account.String(), profileKey)
	if !ok {
		return report
	}
	p, ok := jsonvalue.AsObject(node)
	if !ok {
		return report
	}
	report.ProfileFound = true

	report.Results[CriterionName] = nonEmptyField(p, "name")
	report.Results[CriterionDescription] = nonEmptyField(p, "description")
	report.Results[CriterionImage] = imageField(p, "image")
	report.Results[CriterionBackgroundImage] = imageField(p, "backgroundImage")
	report.Results[CriterionLinktree] = hasLink(p)
	report.Results[CriterionTags] = hasTags(p)
	return report
}

// ValidImage reports whether v describes an image by any supported
// representation: a url, an IPFS CID, or an NFT reference carrying both a
// contract id and a token id.
func ValidImage(v jsonvalue.Value) bool {
	img, ok := jsonvalue.AsObject(v)
	if !ok {
		return false
	}
	if nonEmptyField(img, "url") || nonEmptyField(img, "ipfs_cid") {
		return true
	}
	nftNode, ok := img.Get("nft")
	if !ok {
		return false
	}
	nft, ok := jsonvalue.AsObject(nftNode)
	if !ok {
		return false
	}
	return nonEmptyField(nft, "contractId") && nonEmptyField(nft, "tokenId")
}

func nonEmptyField(o *jsonvalue.Object, key string) bool {
	v, ok := o.Get(key)
	return ok && jsonvalue.NonEmptyString(v)
}

func imageField(o *jsonvalue.Object, key string) bool {
	v, ok := o.Get(key)
	return ok && ValidImage(v)
}

// hasLink requires linktree to be an object with at least one non-empty string value.
func hasLink(p *jsonvalue.Object) bool {
	v, ok := p.Get("linktree")
	if !ok {
		return false
	}
	links, ok := jsonvalue.AsObject(v)
	if !ok {
		return false
	}
	found := false
	links.Range(func(_ string, link jsonvalue.Value) bool {
		found = jsonvalue.NonEmptyString(link)
		return !found
	})
	return found
}

// hasTags requires tags to be a non-empty object; tag values are not inspected.
func hasTags(p *jsonvalue.Object) bool {
	v, ok := p.Get("tags")
	if !ok {
		return false
	}
	tags, ok := jsonvalue.AsObject(v)
	return ok && tags.Len() > 0
}
