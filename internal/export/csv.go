// Package export 把账户流水格式化为可下载的文件。
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"

	"bankledger/internal/model"
)

const dateLayout = "2006-01-02 15:04:05"

var header = []string{"date", "type", "amount", "balance", "remark"}

// WriteStatementCSV 逐条写出流水，返回写出的行数（不含表头）
//
// records 出错时立即停止，已写出的内容保留在 w 中
func WriteStatementCSV(w io.Writer, records iter.Seq2[*model.Transaction, error]) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	rows := 0
	for record, err := range records {
		if err != nil {
			cw.Flush()
			return rows, fmt.Errorf("读取流水失败: %w", err)
		}
		if err := cw.Write([]string{
			record.CreatedAt.Format(dateLayout),
			record.Type,
			record.Amount.StringFixed(2),
			record.BalanceAfter.StringFixed(2),
			record.Remark,
		}); err != nil {
			return rows, err
		}
		rows++
	}

	cw.Flush()
	return rows, cw.Error()
}
