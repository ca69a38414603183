package bench

import (
	"strings"

	"github.com/google/uuid"

	"github.com/content-cache/content-cache/internal/config"
	"github.com/content-cache/content-cache/internal/content"
)

// fillerText 是大组件的填充文本，按 FillerSize 重复或截断。
const fillerText = "Bacon ipsum dolor amet fatback shoulder pig salami, turkey biltong ham\n" +
	"hock cow sirloin flank bacon tail jerky. Kevin brisket shank pork chop\n" +
	"meatball salami rump shankle ribeye ball tip picanha. Doner turducken\n" +
	"kevin, jowl shoulder spare ribs corned beef biltong ham hock boudin\n" +
	"brisket pork chop capicola rump prosciutto. Tri-tip tail hamburger\n" +
	"jerky ball tip. Turkey capicola filet mignon tail cow ham hock\n" +
	"meatball.\n" +
	"\n" +
	"Pork loin frankfurter jerky shankle doner venison meatloaf boudin\n" +
	"landjaeger prosciutto kevin porchetta. Fatback swine t-bone leberkas\n" +
	"salami ball tip pork. Hamburger pork fatback, shankle flank landjaeger\n" +
	"swine sausage chicken short ribs strip steak jerky salami. Drumstick\n" +
	"tongue ball tip strip steak.\n" +
	"\n" +
	"Pork belly kevin shoulder bresaola salami, t-bone ham alcatra chicken\n" +
	"tri-tip. Fatback pancetta prosciutto drumstick jowl frankfurter turkey\n" +
	"spare ribs landjaeger. Pork loin pig meatloaf shank picanha shankle\n" +
	"landjaeger leberkas beef ribs beef chuck t-bone. Pig fatback swine\n" +
	"salami pancetta. Short ribs pork shank turducken."

// FillerComponent 与 FillerKey 定位每条记录中的大组件。
const (
	FillerComponent = "foo"
	FillerKey       = "bar"
)

// Generator 为基准构造记录。除两个随机 UUID 组件外，同一序号生成的记录内容一致。
type Generator struct {
	contentID int
	commitID  int
	creator   string
	modifier  string
	committer string
	parent    content.ID
	filler    string
	newToken  func() string
}

// NewGenerator 根据 Bench 配置创建生成器。
func NewGenerator(cfg config.BenchConfig) *Generator {
	return &Generator{
		contentID: cfg.ContentID,
		commitID:  cfg.CommitID,
		creator:   cfg.Creator,
		modifier:  cfg.Modifier,
		committer: cfg.Committer,
		parent:    cfg.Principal(),
		filler:    Filler(cfg.FillerSize),
		newToken:  func() string { return uuid.NewString() },
	}
}

// ID 返回第 i 条记录的标识 (contentId, i, commitId)。
func (g *Generator) ID(i int) content.ID {
	return content.NewID(g.contentID, i, g.commitID)
}

// Record 构造第 i 条记录。
func (g *Generator) Record(i int) *content.Record {
	id := g.ID(i)
	rec := content.NewRecord(id)
	rec.Info = content.Info{
		Created:        true,
		Creator:        g.creator,
		Modifier:       g.modifier,
		Timestamp:      int64(id.Minor) * 1000,
		InputTemplate:  content.NewRef(1, 1),
		SecurityParent: content.NewRef(1, 2),
		RealID:         id,
	}
	rec.Version = content.Version{
		ID:         id,
		Number:     0,
		CommitTime: int64(id.CommitID) + int64(id.Minor)*1000,
		Committer:  g.committer,
		Parent:     g.parent,
	}
	for n := 0; n < 2; n++ {
		rec.SetComponent(g.newToken(), g.newToken(), g.newToken())
	}
	rec.SetComponent(FillerComponent, FillerKey, g.filler)
	return rec
}

// Filler 返回长度恰为 size 字节的填充文本。
func Filler(size int) string {
	if size <= 0 {
		return ""
	}
	repeats := size/len(fillerText) + 1
	return strings.Repeat(fillerText, repeats)[:size]
}
