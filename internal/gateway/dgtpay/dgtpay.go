package dgtpay

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"degentalk-backend/internal/gateway"
	"degentalk-backend/internal/utils"
)

// DGTPayDriver talks to the hosted crypto settlement gateway. Every request
// and callback carries an MD5 signature over the sorted parameters, keyed by
// the shared merchant secret.
type DGTPayDriver struct {
	BaseURL    string
	MerchantID string
	Key        string
}

func NewDGTPayDriver() *DGTPayDriver {
	return &DGTPayDriver{}
}

func (d *DGTPayDriver) SetConfig(config map[string]interface{}) error {
	if val, ok := config["url"].(string); ok {
		d.BaseURL = strings.TrimRight(val, "/")
	} else {
		return errors.New("missing url in config")
	}

	if val, ok := config["merchant_id"].(string); ok {
		d.MerchantID = val
	} else if val, ok := config["merchant_id"].(float64); ok {
		d.MerchantID = fmt.Sprintf("%.0f", val)
	} else {
		return errors.New("missing merchant_id in config")
	}

	if val, ok := config["key"].(string); ok {
		d.Key = val
	} else {
		return errors.New("missing key in config")
	}
	return nil
}

type apiResponse struct {
	Code int    `json:"code"`
	TxID string `json:"tx_id"`
	Msg  string `json:"msg"`
}

func (d *DGTPayDriver) InitiateDeposit(reference string, expectedAmount int64) (string, error) {
	return d.post("/api/deposit/watch", map[string]string{
		"merchant_id": d.MerchantID,
		"reference":   reference,
		"amount":      strconv.FormatInt(expectedAmount, 10),
	})
}

func (d *DGTPayDriver) InitiateWithdrawal(reference string, destination string, amount int64) (string, error) {
	return d.post("/api/withdraw", map[string]string{
		"merchant_id": d.MerchantID,
		"reference":   reference,
		"destination": destination,
		"amount":      strconv.FormatInt(amount, 10),
	})
}

func (d *DGTPayDriver) post(path string, data map[string]string) (string, error) {
	data["sign"] = d.generateSign(data)

	form := url.Values{}
	for k, v := range data {
		form.Set(k, v)
	}

	client := utils.NewHTTPClient(15 * time.Second)
	resp, err := client.PostForm(d.BaseURL+path, form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Code != 0 {
		return "", fmt.Errorf("gateway error %d: %s", decoded.Code, decoded.Msg)
	}
	return decoded.TxID, nil
}

// Notify verifies the callback signature and decodes the confirmation.
func (d *DGTPayDriver) Notify(params map[string]interface{}) (*gateway.Notification, error) {
	data := make(map[string]string)
	var remoteSign string

	for k, v := range params {
		valStr := fmt.Sprintf("%v", v)
		if k == "sign" {
			remoteSign = valStr
			continue
		}
		data[k] = valStr
	}

	if d.generateSign(data) != remoteSign {
		return nil, errors.New("signature mismatch")
	}

	n := &gateway.Notification{
		Reference:  data["reference"],
		ExternalID: data["tx_id"],
		Confirmed:  data["status"] == "confirmed",
		Reason:     data["reason"],
	}
	if raw, ok := data["final_amount"]; ok {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad final_amount: %v", err)
		}
		n.FinalAmount = amount
	}
	if n.Reference == "" {
		return nil, errors.New("missing reference")
	}
	return n, nil
}

func (d *DGTPayDriver) generateSign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if params[k] == "" {
			continue
		}
		parts = append(parts, k+"="+params[k])
	}

	sum := md5.Sum([]byte(strings.Join(parts, "&") + d.Key))
	return hex.EncodeToString(sum[:])
}
